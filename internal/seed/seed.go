// Package seed bootstraps a default organization so the engine is usable out
// of the box for local and self-hosted environments.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	orgdomain "github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultAdminName = "Platform Admin"

// EnsureDefaultOrg makes sure one organization exists with its anchor entity
// and an owner user. Idempotent: re-running against a seeded database is a
// no-op.
func EnsureDefaultOrg(db *gorm.DB, orgName string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	name := strings.TrimSpace(orgName)
	if name == "" {
		name = "Main"
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureOrgTx(ctx, tx, node, name)
		if err != nil {
			return err
		}
		anchor, err := ensureAnchorTx(ctx, tx, node, org)
		if err != nil {
			return err
		}
		admin, err := ensureAdminTx(ctx, tx, node, org.ID)
		if err != nil {
			return err
		}
		return ensureMembershipTx(ctx, tx, node, org.ID, admin.ID, anchor.ID)
	})
}

func ensureOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) (*orgdomain.Organization, error) {
	code := slug.Make(name)

	var org orgdomain.Organization
	err := tx.WithContext(ctx).Where("code = ?", code).First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	org = orgdomain.Organization{
		ID:        node.Generate(),
		Code:      code,
		Name:      name,
		Status:    orgdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func ensureAnchorTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, org *orgdomain.Organization) (*entitydomain.Entity, error) {
	var anchor entitydomain.Entity
	err := tx.WithContext(ctx).
		Where("organization_id = ? AND smart_code = ?", org.ID, smartcode.CodeOrgAnchor).
		First(&anchor).Error
	if err == nil {
		return &anchor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	anchor = entitydomain.Entity{
		ID:             node.Generate(),
		OrganizationID: org.ID,
		EntityType:     "ORG",
		Name:           org.Name,
		Code:           org.Code,
		SmartCode:      smartcode.CodeOrgAnchor,
		Status:         entitydomain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&anchor).Error; err != nil {
		return nil, err
	}
	return &anchor, nil
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (*entitydomain.Entity, error) {
	var admin entitydomain.Entity
	err := tx.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND smart_code = ?", orgID, "USER", smartcode.CodeUserEntity).
		Order("id asc").
		First(&admin).Error
	if err == nil {
		return &admin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	admin = entitydomain.Entity{
		ID:             node.Generate(),
		OrganizationID: orgID,
		EntityType:     "USER",
		Name:           defaultAdminName,
		SmartCode:      smartcode.CodeUserEntity,
		Status:         entitydomain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func ensureMembershipTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, adminID, anchorID snowflake.ID) error {
	var existing relationshipdomain.Relationship
	err := tx.WithContext(ctx).
		Where(
			"organization_id = ? AND from_entity_id = ? AND to_entity_id = ? AND relationship_type = ?",
			orgID, adminID, anchorID, relationshipdomain.TypeMemberOf,
		).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	membership := relationshipdomain.Relationship{
		ID:               node.Generate(),
		OrganizationID:   orgID,
		FromEntityID:     adminID,
		ToEntityID:       anchorID,
		RelationshipType: relationshipdomain.TypeMemberOf,
		RelationshipData: datatypes.JSONMap{"role": orgdomain.RoleOwner},
		IsActive:         true,
		SmartCode:        smartcode.CodeMembershipEdge,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return tx.WithContext(ctx).Create(&membership).Error
}
