package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records a governed mutation: who did what to which object.
type AuditLog struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	ActorID        *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Action         string            `gorm:"type:text;not null;index" json:"action"`
	TargetType     string            `gorm:"type:text;not null" json:"target_type"`
	TargetID       *string           `gorm:"type:text" json:"target_id,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CorrelationID  *string           `gorm:"type:text" json:"correlation_id,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// AuditCursor positions a page within the id-descending log stream.
type AuditCursor struct {
	ID snowflake.ID
}

type ListFilter struct {
	OrganizationID snowflake.ID
	Action         string
	TargetType     string
	TargetID       string
	StartAt        *time.Time
	EndAt          *time.Time
	Cursor         *AuditCursor
	Limit          int
}
