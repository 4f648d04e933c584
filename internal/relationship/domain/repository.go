package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListQuery struct {
	OrganizationID  snowflake.ID
	FromEntityID    snowflake.ID
	ToEntityID      snowflake.ID
	Type            string
	IncludeInactive bool
	AfterID         snowflake.ID
	Limit           int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Upsert inserts the edge or, on natural-key conflict, updates data and
	// reactivates the existing row. Returns the surviving row.
	Upsert(ctx context.Context, rel Relationship) (*Relationship, error)
	GetByID(ctx context.Context, orgID, id snowflake.ID) (*Relationship, error)
	List(ctx context.Context, q ListQuery) ([]Edge, error)
	Deactivate(ctx context.Context, orgID, id snowflake.ID) (int64, error)
	EntityExists(ctx context.Context, orgID, id snowflake.ID) (bool, error)
}
