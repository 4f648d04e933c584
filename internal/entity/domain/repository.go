package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListQuery struct {
	OrganizationID snowflake.ID
	ID             snowflake.ID
	EntityType     string
	Status         string
	Limit          int
	Offset         int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, e Entity) error
	Update(ctx context.Context, e Entity) error
	GetByID(ctx context.Context, orgID, id snowflake.ID) (*Entity, error)
	List(ctx context.Context, q ListQuery) ([]Entity, error)
	UpsertDynamicFields(ctx context.Context, fields []DynamicField) error
	DynamicFieldsFor(ctx context.Context, orgID snowflake.ID, entityIDs []snowflake.ID) ([]DynamicField, error)
	RelationshipsFor(ctx context.Context, orgID snowflake.ID, entityIDs []snowflake.ID) ([]EdgeProjection, error)
	CountDependents(ctx context.Context, orgID, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	OrphanedDynamicFields(ctx context.Context, orgID snowflake.ID) ([]IntegrityIssue, error)
}
