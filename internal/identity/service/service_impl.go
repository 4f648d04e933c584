package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	identitydomain "github.com/heraerp/heracore/internal/identity/domain"
	orgdomain "github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Repo            identitydomain.Repository
	EntityRepo      entitydomain.Repository
	RelationshipSvc relationshipdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            identitydomain.Repository
	entityRepo      entitydomain.Repository
	relationshipSvc relationshipdomain.Service
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("identity.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		entityRepo:      p.EntityRepo,
		relationshipSvc: p.RelationshipSvc,
	}
}

// Introspect resolves every organization an actor belongs to, with roles and
// apps per tenant. Duplicate active memberships in the same organization are
// collapsed, keeping the most recently updated edge.
func (s *Service) Introspect(ctx context.Context, actorID snowflake.ID) (*identitydomain.IntrospectResponse, error) {
	if actorID == 0 {
		return nil, identitydomain.ErrInvalidActor
	}

	memberships, err := s.repo.Memberships(ctx, actorID)
	if err != nil {
		return nil, err
	}

	seen := map[snowflake.ID]bool{}
	grants := make([]identitydomain.OrganizationGrant, 0, len(memberships))
	defaultOrg := ""
	for _, m := range memberships {
		if seen[m.OrganizationID] {
			continue
		}
		seen[m.OrganizationID] = true
		if defaultOrg == "" && (m.IsDefault == "true" || m.IsDefault == "1") {
			defaultOrg = m.OrganizationID.String()
		}

		roles, err := s.repo.Roles(ctx, m.OrganizationID, actorID)
		if err != nil {
			return nil, err
		}
		apps, err := s.repo.Apps(ctx, m.OrganizationID)
		if err != nil {
			return nil, err
		}

		primary := strings.TrimSpace(m.Role)
		if primary == "" {
			primary = orgdomain.RoleMember
		}
		allRoles := []string{primary}
		for _, role := range roles {
			if role != primary {
				allRoles = append(allRoles, role)
			}
		}

		grants = append(grants, identitydomain.OrganizationGrant{
			ID:          m.OrganizationID.String(),
			Code:        m.OrgCode,
			Name:        m.OrgName,
			PrimaryRole: primary,
			Roles:       allRoles,
			Apps:        apps,
		})
	}

	resp := &identitydomain.IntrospectResponse{
		ActorID:       actorID.String(),
		Organizations: grants,
	}
	// An edge flagged is_default wins; otherwise the most recent membership.
	resp.DefaultOrganizationID = defaultOrg
	if resp.DefaultOrganizationID == "" && len(grants) > 0 {
		resp.DefaultOrganizationID = grants[0].ID
	}
	return resp, nil
}

// Onboard grants membership on behalf of a requester holding OWNER or ADMIN
// in the organization.
func (s *Service) Onboard(ctx context.Context, req identitydomain.OnboardRequest) (*identitydomain.OnboardResponse, error) {
	if req.OrganizationID == 0 {
		return nil, identitydomain.ErrInvalidOrganization
	}
	if req.RequesterID == 0 {
		return nil, identitydomain.ErrInvalidActor
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = orgdomain.RoleMember
	}
	switch role {
	case orgdomain.RoleOwner, orgdomain.RoleAdmin, orgdomain.RoleManager, orgdomain.RoleMember:
	default:
		return nil, identitydomain.ErrInvalidRole
	}

	if err := s.requireElevated(ctx, req.OrganizationID, req.RequesterID); err != nil {
		return nil, err
	}

	anchorID, err := s.repo.OrgAnchor(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	targetID := req.TargetEntityID
	if targetID == 0 {
		name := strings.TrimSpace(req.TargetName)
		if name == "" {
			return nil, identitydomain.ErrInvalidTarget
		}
		member := entitydomain.Entity{
			ID:             s.genID.Generate(),
			OrganizationID: req.OrganizationID,
			EntityType:     "USER",
			Name:           name,
			SmartCode:      smartcode.CodeUserEntity,
			Status:         entitydomain.StatusActive,
			CreatedBy:      req.RequesterID,
			UpdatedBy:      req.RequesterID,
		}
		if err := s.entityRepo.Create(ctx, member); err != nil {
			return nil, err
		}
		targetID = member.ID
	} else {
		exists, err := s.repo.EntityExists(ctx, req.OrganizationID, targetID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, identitydomain.ErrInvalidTarget
		}
	}

	rel, err := s.relationshipSvc.Upsert(ctx, relationshipdomain.UpsertRequest{
		OrganizationID:   req.OrganizationID,
		FromEntityID:     targetID,
		ToEntityID:       anchorID,
		RelationshipType: relationshipdomain.TypeMemberOf,
		RelationshipData: map[string]any{"role": role},
		SmartCode:        smartcode.CodeMembershipEdge,
		ActorID:          req.RequesterID,
	})
	if err != nil {
		return nil, err
	}

	return &identitydomain.OnboardResponse{
		OrganizationID: req.OrganizationID.String(),
		MemberEntityID: targetID.String(),
		Role:           role,
		RelationshipID: rel.ID.String(),
	}, nil
}

// requireElevated checks the requester's membership role in the organization.
func (s *Service) requireElevated(ctx context.Context, orgID, actorID snowflake.ID) error {
	memberships, err := s.repo.Memberships(ctx, actorID)
	if err != nil {
		return err
	}
	for _, m := range memberships {
		if m.OrganizationID != orgID {
			continue
		}
		role := strings.ToUpper(strings.TrimSpace(m.Role))
		if role == orgdomain.RoleOwner || role == orgdomain.RoleAdmin {
			return nil
		}
		// Duplicate memberships are ordered most recent first; the first
		// match decides.
		return identitydomain.ErrForbidden
	}
	return identitydomain.ErrForbidden
}
