package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/heraerp/heracore/internal/organization/domain"
)

type provisionOrganizationRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}

func (s *Server) ProvisionOrganization(c *gin.Context) {
	var body provisionOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, organizationdomain.ErrInvalidName)
		return
	}

	req := organizationdomain.ProvisionRequest{
		Name:      strings.TrimSpace(body.Name),
		OwnerName: strings.TrimSpace(body.OwnerName),
	}
	// An authenticated actor provisioning a tenant becomes its owner unless
	// an owner name is supplied for a fresh user.
	if req.OwnerName == "" {
		req.OwnerActorID = actorIDFrom(c)
	}

	resp, err := s.organizationSvc.Provision(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetOrganization(c *gin.Context) {
	org, err := s.organizationSvc.Get(c.Request.Context(), orgIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}
