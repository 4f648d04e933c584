package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/heracore/internal/relationship/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

// Upsert resolves concurrent callers racing on the same natural key at the
// storage layer: the unique index plus conflict clause guarantees a single
// surviving row regardless of interleaving.
func (r *repository) Upsert(ctx context.Context, rel domain.Relationship) (*domain.Relationship, error) {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO core_relationships (
			id, organization_id, from_entity_id, to_entity_id, relationship_type,
			relationship_data, is_active, smart_code, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, from_entity_id, to_entity_id, relationship_type) DO UPDATE SET
			relationship_data = excluded.relationship_data,
			is_active = excluded.is_active,
			smart_code = excluded.smart_code,
			updated_at = excluded.updated_at`,
		rel.ID,
		rel.OrganizationID,
		rel.FromEntityID,
		rel.ToEntityID,
		rel.RelationshipType,
		rel.RelationshipData,
		true,
		rel.SmartCode,
		rel.CreatedAt,
		rel.UpdatedAt,
	).Error
	if err != nil {
		return nil, err
	}

	var out domain.Relationship
	err = r.db.WithContext(ctx).
		Where("organization_id = ? AND from_entity_id = ? AND to_entity_id = ? AND relationship_type = ?",
			rel.OrganizationID, rel.FromEntityID, rel.ToEntityID, rel.RelationshipType).
		Order("id ASC").
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) GetByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Relationship, error) {
	var rel domain.Relationship
	err := r.db.WithContext(ctx).
		First(&rel, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rel, nil
}

func (r *repository) List(ctx context.Context, q domain.ListQuery) ([]domain.Edge, error) {
	// The counterparty is the endpoint the caller did not filter by; when
	// filtering by neither (or both) the to-side is projected.
	otherSide := "to"
	if q.ToEntityID != 0 && q.FromEntityID == 0 {
		otherSide = "from"
	}

	query := r.db.WithContext(ctx).
		Table("core_relationships AS r").
		Select(`r.*,
			e.id AS other_id, e.name AS other_name, e.code AS other_code,
			e.entity_type AS other_entity_type`).
		Joins("JOIN core_entities e ON e.id = r."+otherSide+"_entity_id AND e.organization_id = r.organization_id").
		Where("r.organization_id = ?", q.OrganizationID)

	if q.FromEntityID != 0 {
		query = query.Where("r.from_entity_id = ?", q.FromEntityID)
	}
	if q.ToEntityID != 0 {
		query = query.Where("r.to_entity_id = ?", q.ToEntityID)
	}
	if q.Type != "" {
		query = query.Where("r.relationship_type = ?", q.Type)
	}
	if !q.IncludeInactive {
		query = query.Where("r.is_active = ?", true)
	}
	if q.AfterID != 0 {
		query = query.Where("r.id > ?", q.AfterID)
	}

	limit := q.Limit
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	var edges []domain.Edge
	// One extra row signals another page.
	err := query.Order("r.id ASC").Limit(limit + 1).Scan(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) Deactivate(ctx context.Context, orgID, id snowflake.ID) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE core_relationships
		 SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND organization_id = ?`,
		false, id, orgID,
	)
	return result.RowsAffected, result.Error
}

func (r *repository) EntityExists(ctx context.Context, orgID, id snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("core_entities").
		Where("id = ? AND organization_id = ?", id, orgID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
