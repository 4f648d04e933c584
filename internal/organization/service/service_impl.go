package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	"github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Repo             domain.Repository
	EntityRepo       entitydomain.Repository
	RelationshipRepo relationshipdomain.Repository
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	repo             domain.Repository
	entityRepo       entitydomain.Repository
	relationshipRepo relationshipdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("organization.service"),
		genID:            p.GenID,
		repo:             p.Repo,
		entityRepo:       p.EntityRepo,
		relationshipRepo: p.RelationshipRepo,
	}
}

// Provision creates a tenant in one transaction: the organization row, its
// anchor entity, and, when no existing actor is supplied, a first owner user
// wired in through a MEMBER_OF edge.
func (s *Service) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.ProvisionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.OwnerActorID == 0 && strings.TrimSpace(req.OwnerName) == "" {
		return nil, domain.ErrInvalidOwner
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        s.genID.Generate(),
		Code:      slug.Make(name),
		Name:      name,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	anchor := entitydomain.Entity{
		ID:             s.genID.Generate(),
		OrganizationID: org.ID,
		EntityType:     "ORG",
		Name:           name,
		Code:           org.Code,
		SmartCode:      smartcode.CodeOrgAnchor,
		Status:         entitydomain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ownerID := req.OwnerActorID
	var owner *entitydomain.Entity
	if ownerID == 0 {
		ownerID = s.genID.Generate()
		owner = &entitydomain.Entity{
			ID:             ownerID,
			OrganizationID: org.ID,
			EntityType:     "USER",
			Name:           strings.TrimSpace(req.OwnerName),
			SmartCode:      smartcode.CodeUserEntity,
			Status:         entitydomain.StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	membership := relationshipdomain.Relationship{
		ID:               s.genID.Generate(),
		OrganizationID:   org.ID,
		FromEntityID:     ownerID,
		ToEntityID:       anchor.ID,
		RelationshipType: relationshipdomain.TypeMemberOf,
		RelationshipData: datatypes.JSONMap{"role": domain.RoleOwner},
		IsActive:         true,
		SmartCode:        smartcode.CodeMembershipEdge,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, org); err != nil {
			return err
		}
		entityRepo := s.entityRepo.WithTx(tx)
		if err := entityRepo.Create(ctx, anchor); err != nil {
			return err
		}
		if owner != nil {
			if err := entityRepo.Create(ctx, *owner); err != nil {
				return err
			}
		}
		_, err := s.relationshipRepo.WithTx(tx).Upsert(ctx, membership)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization provisioned",
		zap.String("organization_id", org.ID.String()),
		zap.String("code", org.Code),
	)

	return &domain.ProvisionResponse{
		Organization:   org,
		AnchorEntityID: anchor.ID.String(),
		OwnerActorID:   ownerID.String(),
	}, nil
}

func (s *Service) Get(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	if orgID == 0 {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, orgID)
}
