// Package domain contains persistence models and contracts for the
// transaction ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Transaction status machine: posted -> reversed. Drafts are ephemeral and
// normalized to an immediate post; only these two states are persisted.
const (
	StatusPosted   = "posted"
	StatusReversed = "reversed"
)

// Line types for balanced (journal) families.
const (
	LineTypeDebit  = "DR"
	LineTypeCredit = "CR"
)

// Metadata keys linking a reversal to its original.
const (
	MetaReversesTransactionID = "reverses_transaction_id"
	MetaReversalReason        = "reversal_reason"
)

// Transaction is the immutable-once-posted header of a business event.
// Amounts are minor units.
type Transaction struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizationID  snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_transactions_org_code,priority:1" json:"organization_id"`
	TransactionType string            `gorm:"type:text;not null;index" json:"transaction_type"`
	TransactionCode string            `gorm:"type:text;not null;uniqueIndex:ux_transactions_org_code,priority:2" json:"transaction_code"`
	SmartCode       string            `gorm:"type:text;not null" json:"smart_code"`
	TransactionDate time.Time         `gorm:"not null" json:"transaction_date"`
	SourceEntityID  *snowflake.ID     `gorm:"index" json:"source_entity_id,omitempty"`
	TargetEntityID  *snowflake.ID     `gorm:"index" json:"target_entity_id,omitempty"`
	TotalAmount     int64             `gorm:"not null" json:"total_amount"`
	Status          string            `gorm:"type:text;not null;default:'posted'" json:"status"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedBy       snowflake.ID      `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "universal_transactions" }

// TransactionLine is one ordered line of a transaction. line_number is unique
// within the transaction and defines order.
type TransactionLine struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	TransactionID  snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_transaction_lines_txn_line,priority:1" json:"transaction_id"`
	OrganizationID snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	LineNumber     int               `gorm:"not null;uniqueIndex:ux_transaction_lines_txn_line,priority:2" json:"line_number"`
	LineType       string            `gorm:"type:text;not null" json:"line_type"`
	EntityID       *snowflake.ID     `gorm:"index" json:"entity_id,omitempty"`
	Quantity       float64           `gorm:"not null;default:0" json:"quantity"`
	UnitAmount     int64             `gorm:"not null;default:0" json:"unit_amount"`
	LineAmount     int64             `gorm:"not null;default:0" json:"line_amount"`
	SmartCode      string            `gorm:"type:text;not null" json:"smart_code"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (TransactionLine) TableName() string { return "universal_transaction_lines" }
