// Package domain contains persistence models and contracts for the entity store.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Entity is the canonical record for any business object. The physical schema
// is generic; semantic typing comes from entity_type and the smart code.
type Entity struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID      `gorm:"not null;index:idx_entities_org_type,priority:1" json:"organization_id"`
	EntityType     string            `gorm:"type:text;not null;index:idx_entities_org_type,priority:2" json:"entity_type"`
	Name           string            `gorm:"type:text;not null" json:"name"`
	Code           string            `gorm:"type:text;index" json:"code"`
	SmartCode      string            `gorm:"type:text;not null" json:"smart_code"`
	Status         string            `gorm:"type:text;not null;default:'active'" json:"status"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedBy      snowflake.ID      `gorm:"column:created_by" json:"created_by"`
	UpdatedBy      snowflake.ID      `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Entity) TableName() string { return "core_entities" }

// Dynamic field value types. Exactly one typed column is populated per row.
const (
	FieldTypeText    = "text"
	FieldTypeNumber  = "number"
	FieldTypeBoolean = "boolean"
	FieldTypeDate    = "date"
	FieldTypeJSON    = "json"
)

// DynamicField is one schema-less attribute value attached to exactly one
// entity. (organization_id, entity_id, field_name) is unique: upsert replaces.
type DynamicField struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID   `gorm:"not null;uniqueIndex:ux_dynamic_org_entity_field,priority:1" json:"organization_id"`
	EntityID       snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_dynamic_org_entity_field,priority:2" json:"entity_id"`
	FieldName      string         `gorm:"type:text;not null;uniqueIndex:ux_dynamic_org_entity_field,priority:3" json:"field_name"`
	FieldType      string         `gorm:"type:text;not null" json:"field_type"`
	ValueText      *string        `gorm:"column:field_value_text" json:"value_text,omitempty"`
	ValueNumber    *float64       `gorm:"column:field_value_number" json:"value_number,omitempty"`
	ValueBoolean   *bool          `gorm:"column:field_value_boolean" json:"value_boolean,omitempty"`
	ValueDate      *time.Time     `gorm:"column:field_value_date" json:"value_date,omitempty"`
	ValueJSON      datatypes.JSON `gorm:"column:field_value_json" json:"value_json,omitempty"`
	SmartCode      string         `gorm:"type:text;not null" json:"smart_code"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DynamicField) TableName() string { return "core_dynamic_data" }

// EdgeProjection is the lightweight view of a relationship plus the other
// endpoint, attached to reads so callers avoid N+1 lookups.
type EdgeProjection struct {
	RelationshipID   snowflake.ID `json:"relationship_id"`
	EntityID         snowflake.ID `json:"entity_id"`
	Direction        string       `json:"direction"` // outgoing | incoming
	RelationshipType string       `json:"relationship_type"`
	OtherEntityID    snowflake.ID `json:"other_entity_id"`
	OtherName        string       `json:"other_name"`
	OtherCode        string       `json:"other_code"`
	OtherEntityType  string       `json:"other_entity_type"`
}

// IntegrityIssue reports dynamic data referencing a missing or cross-org
// entity. Surfaced as a diagnostic, never silently dropped.
type IntegrityIssue struct {
	DynamicFieldID snowflake.ID `json:"dynamic_field_id"`
	EntityID       snowflake.ID `json:"entity_id"`
	FieldName      string       `json:"field_name"`
	Reason         string       `json:"reason"` // missing_entity | cross_org_entity
}
