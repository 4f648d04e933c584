package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/heracore/pkg/db/pagination"
)

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*Relationship, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	Deactivate(ctx context.Context, orgID, id snowflake.ID) error
}

type UpsertRequest struct {
	OrganizationID   snowflake.ID   `json:"organization_id"`
	FromEntityID     snowflake.ID   `json:"from_entity_id"`
	ToEntityID       snowflake.ID   `json:"to_entity_id"`
	RelationshipType string         `json:"relationship_type"`
	RelationshipData map[string]any `json:"relationship_data"`
	SmartCode        string         `json:"smart_code"`
	ActorID          snowflake.ID   `json:"-"`
}

type QueryRequest struct {
	pagination.Pagination

	OrganizationID  snowflake.ID `json:"organization_id"`
	FromEntityID    snowflake.ID `json:"from_entity_id"`
	ToEntityID      snowflake.ID `json:"to_entity_id"`
	Type            string       `json:"relationship_type"`
	IncludeInactive bool         `json:"include_inactive"`
}

type QueryResponse struct {
	pagination.PageInfo

	Relationships []Edge `json:"relationships"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEndpoint     = errors.New("invalid_endpoint")
	ErrInvalidType         = errors.New("invalid_relationship_type")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("relationship_not_found")
)
