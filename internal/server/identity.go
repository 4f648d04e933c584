package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/heraerp/heracore/internal/identity/domain"
)

func (s *Server) Introspect(c *gin.Context) {
	actorID := actorIDFrom(c)
	if actorID == 0 {
		AbortWithError(c, identitydomain.ErrInvalidActor)
		return
	}

	resp, err := s.identitySvc.Introspect(c.Request.Context(), actorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type onboardMemberRequest struct {
	TargetEntityID string `json:"target_entity_id"`
	TargetName     string `json:"target_name"`
	Role           string `json:"role"`
}

func (s *Server) OnboardMember(c *gin.Context) {
	var body onboardMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, identitydomain.ErrInvalidTarget)
		return
	}

	resp, err := s.identitySvc.Onboard(c.Request.Context(), identitydomain.OnboardRequest{
		OrganizationID: orgIDFrom(c),
		RequesterID:    actorIDFrom(c),
		TargetEntityID: parseOptionalID(body.TargetEntityID),
		TargetName:     strings.TrimSpace(body.TargetName),
		Role:           body.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
