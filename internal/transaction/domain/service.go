package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Post(ctx context.Context, req PostRequest) (*TransactionView, error)
	Reverse(ctx context.Context, req ReverseRequest) (*ReverseResponse, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*TransactionView, error)
	List(ctx context.Context, req ListRequest) ([]Transaction, error)
}

type LineInput struct {
	LineNumber int            `json:"line_number"`
	LineType   string         `json:"line_type"`
	EntityID   snowflake.ID   `json:"entity_id"`
	Quantity   float64        `json:"quantity"`
	UnitAmount int64          `json:"unit_amount"`
	LineAmount int64          `json:"line_amount"`
	SmartCode  string         `json:"smart_code"`
	Metadata   map[string]any `json:"metadata"`
}

type PostRequest struct {
	OrganizationID  snowflake.ID   `json:"organization_id"`
	TransactionType string         `json:"transaction_type"`
	TransactionCode string         `json:"transaction_code"`
	SmartCode       string         `json:"smart_code"`
	TransactionDate time.Time      `json:"transaction_date"`
	SourceEntityID  snowflake.ID   `json:"source_entity_id"`
	TargetEntityID  snowflake.ID   `json:"target_entity_id"`
	TotalAmount     int64          `json:"total_amount"`
	Metadata        map[string]any `json:"metadata"`
	Lines           []LineInput    `json:"lines"`
	ActorID         snowflake.ID   `json:"-"`
}

type ReverseRequest struct {
	OrganizationID    snowflake.ID `json:"organization_id"`
	OriginalID        snowflake.ID `json:"original_id"`
	Reason            string       `json:"reason"`
	ReversalSmartCode string       `json:"reversal_smart_code"`
	ActorID           snowflake.ID `json:"-"`
}

type ListRequest struct {
	OrganizationID  snowflake.ID `json:"organization_id"`
	TransactionType string       `json:"transaction_type"`
	Status          string       `json:"status"`
	Limit           int          `json:"limit"`
	Offset          int          `json:"offset"`
}

type TransactionView struct {
	Transaction
	Lines []TransactionLine `json:"lines"`
}

type ReverseResponse struct {
	Reversal      TransactionView `json:"reversal"`
	LinesReversed int             `json:"lines_reversed"`
}

var (
	ErrInvalidOrganization      = errors.New("invalid_organization")
	ErrInvalidTransactionType   = errors.New("invalid_transaction_type")
	ErrEmptyLines               = errors.New("empty_lines")
	ErrInvalidLineType          = errors.New("invalid_line_type")
	ErrInvalidReason            = errors.New("invalid_reason")
	ErrNotFound                 = errors.New("transaction_not_found")
	ErrAlreadyReversed          = errors.New("transaction_already_reversed")
	ErrDuplicateTransactionCode = errors.New("duplicate_transaction_code")
)

// ReconciliationError reports the failed posting rule and what it observed.
type ReconciliationError struct {
	Rule   string
	Detail string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation rule %q failed: %s", e.Rule, e.Detail)
}

// GuardrailError names the first line whose contextual tag diverges from the
// header's.
type GuardrailError struct {
	LineIndex int
	Tag       string
	Expected  string
	Got       string
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("guardrail violation on line %d: %s=%q, header has %q", e.LineIndex, e.Tag, e.Got, e.Expected)
}
