package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/pkg/db/pagination"
)

type upsertRelationshipRequest struct {
	FromEntityID     string         `json:"from_entity_id"`
	ToEntityID       string         `json:"to_entity_id"`
	RelationshipType string         `json:"relationship_type"`
	RelationshipData map[string]any `json:"relationship_data"`
	SmartCode        string         `json:"smart_code"`
}

func (s *Server) UpsertRelationship(c *gin.Context) {
	var body upsertRelationshipRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, relationshipdomain.ErrInvalidType)
		return
	}

	fromID, err := snowflake.ParseString(strings.TrimSpace(body.FromEntityID))
	if err != nil || fromID == 0 {
		AbortWithError(c, relationshipdomain.ErrInvalidEndpoint)
		return
	}
	toID, err := snowflake.ParseString(strings.TrimSpace(body.ToEntityID))
	if err != nil || toID == 0 {
		AbortWithError(c, relationshipdomain.ErrInvalidEndpoint)
		return
	}

	rel, err := s.relationshipSvc.Upsert(c.Request.Context(), relationshipdomain.UpsertRequest{
		OrganizationID:   orgIDFrom(c),
		FromEntityID:     fromID,
		ToEntityID:       toID,
		RelationshipType: body.RelationshipType,
		RelationshipData: body.RelationshipData,
		SmartCode:        body.SmartCode,
		ActorID:          actorIDFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (s *Server) QueryRelationships(c *gin.Context) {
	req := relationshipdomain.QueryRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(c.Query("page_token")),
			PageSize:  intQuery(c, "page_size"),
		},
		OrganizationID:  orgIDFrom(c),
		FromEntityID:    idQuery(c, "from_entity_id"),
		ToEntityID:      idQuery(c, "to_entity_id"),
		Type:            strings.TrimSpace(c.Query("relationship_type")),
		IncludeInactive: c.Query("include_inactive") == "true",
	}

	resp, err := s.relationshipSvc.Query(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeactivateRelationship(c *gin.Context) {
	relID, err := snowflake.ParseString(strings.TrimSpace(c.Param("relationship_id")))
	if err != nil || relID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.relationshipSvc.Deactivate(c.Request.Context(), orgIDFrom(c), relID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
