package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/heracore/internal/identity/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Memberships(ctx context.Context, actorID snowflake.ID) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			r.id AS relationship_id,
			r.organization_id,
			o.code AS org_code,
			o.name AS org_name,
			COALESCE(r.relationship_data ->> 'role', '') AS role,
			COALESCE(r.relationship_data ->> 'is_default', '') AS is_default,
			r.updated_at
		FROM core_relationships r
		JOIN core_organizations o ON o.id = r.organization_id
		WHERE r.from_entity_id = ?
		  AND r.relationship_type = ?
		  AND r.is_active = ?
		ORDER BY r.updated_at DESC, r.id DESC`,
		actorID, relationshipdomain.TypeMemberOf, true,
	).Scan(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *repo) Roles(ctx context.Context, orgID, actorID snowflake.ID) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT e.code
		FROM core_relationships r
		JOIN core_entities e ON e.id = r.to_entity_id AND e.organization_id = r.organization_id
		WHERE r.organization_id = ?
		  AND r.from_entity_id = ?
		  AND r.relationship_type = ?
		  AND r.is_active = ?
		ORDER BY e.code ASC`,
		orgID, actorID, relationshipdomain.TypeHasRole, true,
	).Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) Apps(ctx context.Context, orgID snowflake.ID) ([]string, error) {
	var apps []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT e.code
		FROM core_relationships r
		JOIN core_entities e ON e.id = r.to_entity_id AND e.organization_id = r.organization_id
		WHERE r.organization_id = ?
		  AND r.relationship_type = ?
		  AND r.is_active = ?
		ORDER BY e.code ASC`,
		orgID, relationshipdomain.TypeOrgHasApp, true,
	).Scan(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repo) OrgAnchor(ctx context.Context, orgID snowflake.ID) (snowflake.ID, error) {
	var anchorID snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT id FROM core_entities
		WHERE organization_id = ? AND smart_code = ?
		ORDER BY id ASC LIMIT 1`,
		orgID, smartcode.CodeOrgAnchor,
	).Scan(&anchorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	if anchorID == 0 {
		return 0, domain.ErrNotFound
	}
	return anchorID, nil
}

func (r *repo) EntityExists(ctx context.Context, orgID, id snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM core_entities WHERE organization_id = ? AND id = ?`,
		orgID, id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
