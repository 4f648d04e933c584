package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/heracore/internal/entity/domain"
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

func (r *repository) Create(ctx context.Context, e domain.Entity) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO core_entities (
			id, organization_id, entity_type, name, code, smart_code, status,
			metadata, created_by, updated_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.OrganizationID,
		e.EntityType,
		e.Name,
		e.Code,
		e.SmartCode,
		e.Status,
		e.Metadata,
		e.CreatedBy,
		e.UpdatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	).Error
}

func (r *repository) Update(ctx context.Context, e domain.Entity) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE core_entities
		 SET entity_type = ?, name = ?, code = ?, smart_code = ?, status = ?,
		     metadata = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND organization_id = ?`,
		e.EntityType,
		e.Name,
		e.Code,
		e.SmartCode,
		e.Status,
		e.Metadata,
		e.UpdatedBy,
		e.UpdatedAt,
		e.ID,
		e.OrganizationID,
	).Error
}

func (r *repository) GetByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Entity, error) {
	var e domain.Entity
	err := r.db.WithContext(ctx).
		First(&e, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, q domain.ListQuery) ([]domain.Entity, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", q.OrganizationID)

	if q.ID != 0 {
		query = query.Where("id = ?", q.ID)
	}
	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	limit := q.Limit
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	var entities []domain.Entity
	err := query.Order("id ASC").Limit(limit).Offset(q.Offset).Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *repository) UpsertDynamicFields(ctx context.Context, fields []domain.DynamicField) error {
	for _, f := range fields {
		err := r.db.WithContext(ctx).Exec(
			`INSERT INTO core_dynamic_data (
				id, organization_id, entity_id, field_name, field_type,
				field_value_text, field_value_number, field_value_boolean,
				field_value_date, field_value_json, smart_code, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (organization_id, entity_id, field_name) DO UPDATE SET
				field_type = excluded.field_type,
				field_value_text = excluded.field_value_text,
				field_value_number = excluded.field_value_number,
				field_value_boolean = excluded.field_value_boolean,
				field_value_date = excluded.field_value_date,
				field_value_json = excluded.field_value_json,
				smart_code = excluded.smart_code,
				updated_at = excluded.updated_at`,
			f.ID,
			f.OrganizationID,
			f.EntityID,
			f.FieldName,
			f.FieldType,
			f.ValueText,
			f.ValueNumber,
			f.ValueBoolean,
			f.ValueDate,
			f.ValueJSON,
			f.SmartCode,
			f.CreatedAt,
			f.UpdatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) DynamicFieldsFor(ctx context.Context, orgID snowflake.ID, entityIDs []snowflake.ID) ([]domain.DynamicField, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	var fields []domain.DynamicField
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_id IN ?", orgID, entityIDs).
		Order("entity_id ASC, field_name ASC").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repository) RelationshipsFor(ctx context.Context, orgID snowflake.ID, entityIDs []snowflake.ID) ([]domain.EdgeProjection, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	var edges []domain.EdgeProjection
	err := r.db.WithContext(ctx).Raw(
		`SELECT r.id AS relationship_id, r.from_entity_id AS entity_id, 'outgoing' AS direction,
		        r.relationship_type,
		        e.id AS other_entity_id, e.name AS other_name, e.code AS other_code,
		        e.entity_type AS other_entity_type
		 FROM core_relationships r
		 JOIN core_entities e ON e.id = r.to_entity_id AND e.organization_id = r.organization_id
		 WHERE r.organization_id = ? AND r.is_active AND r.from_entity_id IN ?
		 UNION ALL
		 SELECT r.id AS relationship_id, r.to_entity_id AS entity_id, 'incoming' AS direction,
		        r.relationship_type,
		        e.id AS other_entity_id, e.name AS other_name, e.code AS other_code,
		        e.entity_type AS other_entity_type
		 FROM core_relationships r
		 JOIN core_entities e ON e.id = r.from_entity_id AND e.organization_id = r.organization_id
		 WHERE r.organization_id = ? AND r.is_active AND r.to_entity_id IN ?`,
		orgID, entityIDs, orgID, entityIDs,
	).Scan(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) CountDependents(ctx context.Context, orgID, id snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM core_relationships
			 WHERE organization_id = ? AND (from_entity_id = ? OR to_entity_id = ?))
		  + (SELECT COUNT(*) FROM universal_transactions
			 WHERE organization_id = ? AND (source_entity_id = ? OR target_entity_id = ?))
		  + (SELECT COUNT(*) FROM universal_transaction_lines
			 WHERE organization_id = ? AND entity_id = ?)`,
		orgID, id, id,
		orgID, id, id,
		orgID, id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if err := r.db.WithContext(ctx).Exec(
		`DELETE FROM core_dynamic_data WHERE organization_id = ? AND entity_id = ?`,
		orgID, id,
	).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM core_entities WHERE organization_id = ? AND id = ?`,
		orgID, id,
	).Error
}

func (r *repository) OrphanedDynamicFields(ctx context.Context, orgID snowflake.ID) ([]domain.IntegrityIssue, error) {
	var issues []domain.IntegrityIssue
	err := r.db.WithContext(ctx).Raw(
		`SELECT d.id AS dynamic_field_id, d.entity_id, d.field_name,
		        CASE WHEN e.id IS NULL THEN 'missing_entity' ELSE 'cross_org_entity' END AS reason
		 FROM core_dynamic_data d
		 LEFT JOIN core_entities e ON e.id = d.entity_id
		 WHERE d.organization_id = ?
		   AND (e.id IS NULL OR e.organization_id <> d.organization_id)`,
		orgID,
	).Scan(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}
