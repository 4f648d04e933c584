package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	transactiondomain "github.com/heraerp/heracore/internal/transaction/domain"
)

type transactionLineRequest struct {
	LineNumber int            `json:"line_number"`
	LineType   string         `json:"line_type"`
	EntityID   string         `json:"entity_id"`
	Quantity   float64        `json:"quantity"`
	UnitAmount int64          `json:"unit_amount"`
	LineAmount int64          `json:"line_amount"`
	SmartCode  string         `json:"smart_code"`
	Metadata   map[string]any `json:"metadata"`
}

type postTransactionRequest struct {
	TransactionType string                   `json:"transaction_type"`
	TransactionCode string                   `json:"transaction_code"`
	SmartCode       string                   `json:"smart_code"`
	TransactionDate *time.Time               `json:"transaction_date"`
	SourceEntityID  string                   `json:"source_entity_id"`
	TargetEntityID  string                   `json:"target_entity_id"`
	TotalAmount     int64                    `json:"total_amount"`
	Metadata        map[string]any           `json:"metadata"`
	Lines           []transactionLineRequest `json:"lines"`
}

func (s *Server) PostTransaction(c *gin.Context) {
	orgID := orgIDFrom(c)

	if s.postLimiter.Enabled() {
		allowed, err := s.postLimiter.AllowOrg(c.Request.Context(), orgID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied("transactions.post")
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
	}

	var body postTransactionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, transactiondomain.ErrInvalidTransactionType)
		return
	}

	lines := make([]transactiondomain.LineInput, 0, len(body.Lines))
	for _, line := range body.Lines {
		lines = append(lines, transactiondomain.LineInput{
			LineNumber: line.LineNumber,
			LineType:   line.LineType,
			EntityID:   parseOptionalID(line.EntityID),
			Quantity:   line.Quantity,
			UnitAmount: line.UnitAmount,
			LineAmount: line.LineAmount,
			SmartCode:  line.SmartCode,
			Metadata:   line.Metadata,
		})
	}

	req := transactiondomain.PostRequest{
		OrganizationID:  orgID,
		TransactionType: body.TransactionType,
		TransactionCode: body.TransactionCode,
		SmartCode:       body.SmartCode,
		SourceEntityID:  parseOptionalID(body.SourceEntityID),
		TargetEntityID:  parseOptionalID(body.TargetEntityID),
		TotalAmount:     body.TotalAmount,
		Metadata:        body.Metadata,
		Lines:           lines,
		ActorID:         actorIDFrom(c),
	}
	if body.TransactionDate != nil {
		req.TransactionDate = *body.TransactionDate
	}

	view, err := s.transactionSvc.Post(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

type reverseTransactionRequest struct {
	Reason    string `json:"reason"`
	SmartCode string `json:"smart_code"`
}

func (s *Server) ReverseTransaction(c *gin.Context) {
	txnID, err := snowflake.ParseString(strings.TrimSpace(c.Param("transaction_id")))
	if err != nil || txnID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	var body reverseTransactionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, transactiondomain.ErrInvalidReason)
		return
	}

	resp, err := s.transactionSvc.Reverse(c.Request.Context(), transactiondomain.ReverseRequest{
		OrganizationID:    orgIDFrom(c),
		OriginalID:        txnID,
		Reason:            body.Reason,
		ReversalSmartCode: body.SmartCode,
		ActorID:           actorIDFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetTransaction(c *gin.Context) {
	txnID, err := snowflake.ParseString(strings.TrimSpace(c.Param("transaction_id")))
	if err != nil || txnID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	view, err := s.transactionSvc.Get(c.Request.Context(), orgIDFrom(c), txnID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) ListTransactions(c *gin.Context) {
	txns, err := s.transactionSvc.List(c.Request.Context(), transactiondomain.ListRequest{
		OrganizationID:  orgIDFrom(c),
		TransactionType: strings.TrimSpace(c.Query("transaction_type")),
		Status:          strings.TrimSpace(c.Query("status")),
		Limit:           intQuery(c, "limit"),
		Offset:          intQuery(c, "offset"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func parseOptionalID(raw string) snowflake.ID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0
	}
	return id
}
