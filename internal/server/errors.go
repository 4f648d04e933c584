package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	"github.com/heraerp/heracore/internal/authorization"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	identitydomain "github.com/heraerp/heracore/internal/identity/domain"
	organizationdomain "github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	transactiondomain "github.com/heraerp/heracore/internal/transaction/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
	ErrInternal     = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}

	var reconciliationErr *transactiondomain.ReconciliationError
	if errors.As(err, &reconciliationErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "reconciliation_error",
			Message: reconciliationErr.Error(),
			Detail: gin.H{
				"rule":   reconciliationErr.Rule,
				"detail": reconciliationErr.Detail,
			},
		}
	}

	var guardrailErr *transactiondomain.GuardrailError
	if errors.As(err, &guardrailErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "guardrail_violation",
			Message: guardrailErr.Error(),
			Detail: gin.H{
				"line_index": guardrailErr.LineIndex,
				"tag":        guardrailErr.Tag,
				"expected":   guardrailErr.Expected,
				"got":        guardrailErr.Got,
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "authentication required"}

	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, identitydomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "operation not permitted"}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, entitydomain.ErrNotFound),
		errors.Is(err, relationshipdomain.ErrNotFound),
		errors.Is(err, transactiondomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}

	case errors.Is(err, entitydomain.ErrHasDependents),
		errors.Is(err, transactiondomain.ErrAlreadyReversed),
		errors.Is(err, transactiondomain.ErrDuplicateTransactionCode):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	case errors.Is(err, smartcode.ErrInvalidSmartCode):
		return http.StatusUnprocessableEntity, errorPayload{Type: "invalid_smart_code", Message: err.Error()}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}

	case errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidOwner),
		errors.Is(err, entitydomain.ErrInvalidOrganization),
		errors.Is(err, entitydomain.ErrInvalidEntityType),
		errors.Is(err, entitydomain.ErrInvalidName),
		errors.Is(err, entitydomain.ErrInvalidFieldName),
		errors.Is(err, entitydomain.ErrInvalidFieldValue),
		errors.Is(err, relationshipdomain.ErrInvalidOrganization),
		errors.Is(err, relationshipdomain.ErrInvalidEndpoint),
		errors.Is(err, relationshipdomain.ErrInvalidType),
		errors.Is(err, relationshipdomain.ErrInvalidPageToken),
		errors.Is(err, transactiondomain.ErrInvalidOrganization),
		errors.Is(err, transactiondomain.ErrInvalidTransactionType),
		errors.Is(err, transactiondomain.ErrEmptyLines),
		errors.Is(err, transactiondomain.ErrInvalidLineType),
		errors.Is(err, transactiondomain.ErrInvalidReason),
		errors.Is(err, identitydomain.ErrInvalidActor),
		errors.Is(err, identitydomain.ErrInvalidOrganization),
		errors.Is(err, identitydomain.ErrInvalidTarget),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	}

	return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
}
