package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	obsmetrics "github.com/heraerp/heracore/internal/observability/metrics"
	"github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	"github.com/heraerp/heracore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("relationship.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.Relationship, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if req.FromEntityID == 0 || req.ToEntityID == 0 {
		return nil, domain.ErrInvalidEndpoint
	}

	relType := strings.TrimSpace(req.RelationshipType)
	if relType == "" {
		return nil, domain.ErrInvalidType
	}

	code, err := smartcode.Normalize(req.SmartCode)
	if err != nil {
		return nil, err
	}

	// Both endpoints must resolve inside the caller's organization; a cross-org
	// endpoint is indistinguishable from a missing one.
	for _, endpoint := range []snowflake.ID{req.FromEntityID, req.ToEntityID} {
		exists, err := s.repo.EntityExists(ctx, req.OrganizationID, endpoint)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrNotFound
		}
	}

	now := time.Now().UTC()
	rel := domain.Relationship{
		ID:               s.genID.Generate(),
		OrganizationID:   req.OrganizationID,
		FromEntityID:     req.FromEntityID,
		ToEntityID:       req.ToEntityID,
		RelationshipType: relType,
		RelationshipData: datatypes.JSONMap(req.RelationshipData),
		IsActive:         true,
		SmartCode:        code,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var out *domain.Relationship
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		out, txErr = s.repo.WithTx(tx).Upsert(ctx, rel)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordRelationshipUpsert(relType)
	}
	s.audit(ctx, req.OrganizationID, req.ActorID, "relationship.upserted", out.ID, map[string]any{
		"relationship_type": relType,
		"from_entity_id":    req.FromEntityID.String(),
		"to_entity_id":      req.ToEntityID.String(),
	})

	return out, nil
}

func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var afterID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		parsed, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		afterID = parsed
	}

	limit := req.PageSize
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	edges, err := s.repo.List(ctx, domain.ListQuery{
		OrganizationID:  req.OrganizationID,
		FromEntityID:    req.FromEntityID,
		ToEntityID:      req.ToEntityID,
		Type:            strings.TrimSpace(req.Type),
		IncludeInactive: req.IncludeInactive,
		AfterID:         afterID,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	edges, pageInfo := pagination.BuildCursorPageInfo(edges, limit, func(e domain.Edge) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})

	return &domain.QueryResponse{
		PageInfo:      *pageInfo,
		Relationships: edges,
	}, nil
}

func (s *Service) Deactivate(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	affected, err := s.repo.Deactivate(ctx, orgID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.audit(ctx, orgID, 0, "relationship.deactivated", id, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, orgID, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actor := ""
	if actorID != 0 {
		actor = actorID.String()
	}
	if err := s.auditSvc.AuditLog(ctx, orgID, actor, action, "relationship", targetID.String(), metadata); err != nil {
		s.log.Warn("failed to write relationship audit log", zap.Error(err))
	}
}
