// Package domain defines the identity resolver contracts: who an actor is
// and which tenants they can act in.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Introspect(ctx context.Context, actorID snowflake.ID) (*IntrospectResponse, error)
	Onboard(ctx context.Context, req OnboardRequest) (*OnboardResponse, error)
}

// OrganizationGrant is one tenant an actor belongs to, with the roles and
// apps granted there.
type OrganizationGrant struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	PrimaryRole string   `json:"primary_role"`
	Roles       []string `json:"roles"`
	Apps        []string `json:"apps"`
}

type IntrospectResponse struct {
	ActorID               string              `json:"actor_id"`
	Organizations         []OrganizationGrant `json:"organizations"`
	DefaultOrganizationID string              `json:"default_organization_id,omitempty"`
}

// OnboardRequest grants TargetEntityID membership in an organization. When
// TargetEntityID is zero a fresh USER entity named TargetName is created
// first. RequesterID must hold an elevated role in the organization.
type OnboardRequest struct {
	OrganizationID snowflake.ID `json:"organization_id"`
	RequesterID    snowflake.ID `json:"-"`
	TargetEntityID snowflake.ID `json:"target_entity_id"`
	TargetName     string       `json:"target_name"`
	Role           string       `json:"role"`
}

type OnboardResponse struct {
	OrganizationID string `json:"organization_id"`
	MemberEntityID string `json:"member_entity_id"`
	Role           string `json:"role"`
	RelationshipID string `json:"relationship_id"`
}

// Membership is one MEMBER_OF edge joined with its organization, as read by
// the cross-org resolver query.
type Membership struct {
	RelationshipID snowflake.ID `json:"relationship_id"`
	OrganizationID snowflake.ID `json:"organization_id"`
	OrgCode        string       `json:"org_code"`
	OrgName        string       `json:"org_name"`
	Role           string       `json:"role"`
	IsDefault      string       `json:"is_default"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTarget       = errors.New("invalid_target")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("identity_not_found")
)
