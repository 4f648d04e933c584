package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*EntityView, error)
	Read(ctx context.Context, req ReadRequest) (*ReadResponse, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	Integrity(ctx context.Context, orgID snowflake.ID) ([]IntegrityIssue, error)
}

// DynamicFieldInput carries one attribute value. Value is decoded according to
// FieldType: text -> string, number -> float64, boolean -> bool,
// date -> RFC3339 or 2006-01-02 string, json -> any marshalable value.
type DynamicFieldInput struct {
	FieldName string `json:"field_name"`
	FieldType string `json:"field_type"`
	Value     any    `json:"value"`
	SmartCode string `json:"smart_code"`
}

type UpsertRequest struct {
	OrganizationID snowflake.ID        `json:"organization_id"`
	ID             snowflake.ID        `json:"id"` // zero -> create
	EntityType     string              `json:"entity_type"`
	Name           string              `json:"name"`
	Code           string              `json:"code"`
	SmartCode      string              `json:"smart_code"`
	Status         string              `json:"status"`
	Metadata       map[string]any      `json:"metadata"`
	DynamicFields  []DynamicFieldInput `json:"dynamic_fields"`
	ActorID        snowflake.ID        `json:"-"`
}

type ReadRequest struct {
	OrganizationID       snowflake.ID `json:"organization_id"`
	ID                   snowflake.ID `json:"id"`
	EntityType           string       `json:"entity_type"`
	Status               string       `json:"status"`
	IncludeDynamic       bool         `json:"include_dynamic"`
	IncludeRelationships bool         `json:"include_relationships"`
	Limit                int          `json:"limit"`
	Offset               int          `json:"offset"`
}

// EntityView is an entity plus its optional attachments.
type EntityView struct {
	Entity
	DynamicFields []DynamicField   `json:"dynamic_fields,omitempty"`
	Relationships []EdgeProjection `json:"relationships,omitempty"`
}

type ReadResponse struct {
	Entities        []EntityView     `json:"entities"`
	IntegrityIssues []IntegrityIssue `json:"integrity_issues,omitempty"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEntityType   = errors.New("invalid_entity_type")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidFieldName    = errors.New("invalid_field_name")
	ErrInvalidFieldValue   = errors.New("invalid_field_value")
	ErrNotFound            = errors.New("entity_not_found")
	ErrHasDependents       = errors.New("entity_has_dependents")
)
