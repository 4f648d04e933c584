package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// Memberships walks MEMBER_OF edges for an actor across every tenant.
	// This is the only query in the engine deliberately not scoped to one
	// organization_id.
	Memberships(ctx context.Context, actorID snowflake.ID) ([]Membership, error)
	Roles(ctx context.Context, orgID, actorID snowflake.ID) ([]string, error)
	Apps(ctx context.Context, orgID snowflake.ID) ([]string, error)
	OrgAnchor(ctx context.Context, orgID snowflake.ID) (snowflake.ID, error)
	EntityExists(ctx context.Context, orgID, id snowflake.ID) (bool, error)
}
