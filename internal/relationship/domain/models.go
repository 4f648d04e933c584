// Package domain contains persistence models and contracts for the
// relationship graph.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Well-known relationship types used by identity resolution. The type column
// itself is free-form; these are only the edges the engine walks internally.
const (
	TypeMemberOf  = "MEMBER_OF"
	TypeHasRole   = "HAS_ROLE"
	TypeOrgHasApp = "ORG_HAS_APP"
)

// Relationship is a directed, typed edge between two entities. The natural key
// (organization_id, from_entity_id, to_entity_id, relationship_type) is unique;
// upsert reuses or reactivates the row instead of creating duplicates.
type Relationship struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizationID   snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_relationships_natural,priority:1" json:"organization_id"`
	FromEntityID     snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_relationships_natural,priority:2" json:"from_entity_id"`
	ToEntityID       snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_relationships_natural,priority:3" json:"to_entity_id"`
	RelationshipType string            `gorm:"type:text;not null;uniqueIndex:ux_relationships_natural,priority:4" json:"relationship_type"`
	RelationshipData datatypes.JSONMap `gorm:"type:jsonb" json:"relationship_data"`
	IsActive         bool              `gorm:"not null;default:true" json:"is_active"`
	SmartCode        string            `gorm:"type:text;not null" json:"smart_code"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Relationship) TableName() string { return "core_relationships" }

// Counterparty is the projection of the entity on the other end of an edge,
// joined in the same query so callers avoid N+1 round trips.
type Counterparty struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	Code       string       `json:"code"`
	EntityType string       `json:"entity_type"`
}

// Edge is a relationship plus the counterparty projection relative to the
// queried endpoint.
type Edge struct {
	Relationship `gorm:"embedded"`
	Counterparty Counterparty `gorm:"embedded;embeddedPrefix:other_" json:"counterparty"`
}
