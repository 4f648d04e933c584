package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
)

type upsertEntityRequest struct {
	ID            string                           `json:"id"`
	EntityType    string                           `json:"entity_type"`
	Name          string                           `json:"name"`
	Code          string                           `json:"code"`
	SmartCode     string                           `json:"smart_code"`
	Status        string                           `json:"status"`
	Metadata      map[string]any                   `json:"metadata"`
	DynamicFields []entitydomain.DynamicFieldInput `json:"dynamic_fields"`
}

func (s *Server) UpsertEntity(c *gin.Context) {
	var body upsertEntityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, entitydomain.ErrInvalidEntityType)
		return
	}

	var entityID snowflake.ID
	if raw := strings.TrimSpace(body.ID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			AbortWithError(c, ErrNotFound)
			return
		}
		entityID = parsed
	}

	view, err := s.entitySvc.Upsert(c.Request.Context(), entitydomain.UpsertRequest{
		OrganizationID: orgIDFrom(c),
		ID:             entityID,
		EntityType:     body.EntityType,
		Name:           body.Name,
		Code:           body.Code,
		SmartCode:      body.SmartCode,
		Status:         body.Status,
		Metadata:       body.Metadata,
		DynamicFields:  body.DynamicFields,
		ActorID:        actorIDFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if entityID == 0 {
		status = http.StatusCreated
	}
	c.JSON(status, view)
}

func (s *Server) ReadEntities(c *gin.Context) {
	req := entitydomain.ReadRequest{
		OrganizationID:       orgIDFrom(c),
		EntityType:           strings.TrimSpace(c.Query("entity_type")),
		Status:               strings.TrimSpace(c.Query("status")),
		IncludeDynamic:       c.Query("include_dynamic") == "true",
		IncludeRelationships: c.Query("include_relationships") == "true",
		Limit:                intQuery(c, "limit"),
		Offset:               intQuery(c, "offset"),
	}

	resp, err := s.entitySvc.Read(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetEntity(c *gin.Context) {
	entityID, err := snowflake.ParseString(strings.TrimSpace(c.Param("entity_id")))
	if err != nil || entityID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.entitySvc.Read(c.Request.Context(), entitydomain.ReadRequest{
		OrganizationID:       orgIDFrom(c),
		ID:                   entityID,
		IncludeDynamic:       true,
		IncludeRelationships: c.Query("include_relationships") == "true",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(resp.Entities) == 0 {
		AbortWithError(c, entitydomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, resp.Entities[0])
}

func (s *Server) DeleteEntity(c *gin.Context) {
	entityID, err := snowflake.ParseString(strings.TrimSpace(c.Param("entity_id")))
	if err != nil || entityID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.entitySvc.Delete(c.Request.Context(), orgIDFrom(c), entityID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) EntityIntegrity(c *gin.Context) {
	issues, err := s.entitySvc.Integrity(c.Request.Context(), orgIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"integrity_issues": issues})
}
