package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Membership roles recognized by the engine. OWNER and ADMIN are the elevated
// roles allowed to onboard other actors.
const (
	RoleOwner   = "OWNER"
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleMember  = "MEMBER"
)

type Service interface {
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResponse, error)
	Get(ctx context.Context, orgID snowflake.ID) (*Organization, error)
}

// ProvisionRequest creates a tenant. When OwnerActorID is zero a fresh owner
// entity is created inside the new organization using OwnerName.
type ProvisionRequest struct {
	Name         string
	OwnerActorID snowflake.ID
	OwnerName    string
}

type ProvisionResponse struct {
	Organization   Organization `json:"organization"`
	AnchorEntityID string       `json:"anchor_entity_id"`
	OwnerActorID   string       `json:"owner_actor_id"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrNotFound     = errors.New("organization_not_found")
)
