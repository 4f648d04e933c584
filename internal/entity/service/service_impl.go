package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	"github.com/heraerp/heracore/internal/entity/domain"
	obsmetrics "github.com/heraerp/heracore/internal/observability/metrics"
	"github.com/heraerp/heracore/internal/smartcode"
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
		log:        p.Log.Named("entity.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.EntityView, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	entityType := strings.TrimSpace(req.EntityType)
	name := strings.TrimSpace(req.Name)

	code, err := smartcode.Normalize(req.SmartCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var result domain.Entity

	if req.ID == 0 {
		if entityType == "" {
			return nil, domain.ErrInvalidEntityType
		}
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		result = domain.Entity{
			ID:             s.genID.Generate(),
			OrganizationID: req.OrganizationID,
			EntityType:     entityType,
			Name:           name,
			Code:           strings.TrimSpace(req.Code),
			SmartCode:      code,
			Status:         domain.StatusActive,
			Metadata:       datatypes.JSONMap(req.Metadata),
			CreatedBy:      req.ActorID,
			UpdatedBy:      req.ActorID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if st := strings.TrimSpace(req.Status); st != "" {
			result.Status = st
		}
	} else {
		existing, err := s.repo.GetByID(ctx, req.OrganizationID, req.ID)
		if err != nil {
			return nil, err
		}
		result = *existing
		if entityType != "" {
			result.EntityType = entityType
		}
		if name != "" {
			result.Name = name
		}
		if c := strings.TrimSpace(req.Code); c != "" {
			result.Code = c
		}
		if st := strings.TrimSpace(req.Status); st != "" {
			result.Status = st
		}
		if req.Metadata != nil {
			result.Metadata = datatypes.JSONMap(req.Metadata)
		}
		result.SmartCode = code
		result.UpdatedBy = req.ActorID
		result.UpdatedAt = now
	}

	fields, err := s.buildDynamicFields(result, req.DynamicFields, now)
	if err != nil {
		return nil, err
	}

	// Entity row and dynamic rows commit together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.ID == 0 {
			if err := repo.Create(ctx, result); err != nil {
				return err
			}
		} else {
			if err := repo.Update(ctx, result); err != nil {
				return err
			}
		}
		return repo.UpsertDynamicFields(ctx, fields)
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordEntityUpsert(result.EntityType)
	}
	s.audit(ctx, req.OrganizationID, req.ActorID, "entity.upserted", result.ID, map[string]any{
		"entity_type": result.EntityType,
		"smart_code":  result.SmartCode,
	})

	allFields, err := s.repo.DynamicFieldsFor(ctx, req.OrganizationID, []snowflake.ID{result.ID})
	if err != nil {
		return nil, err
	}

	return &domain.EntityView{Entity: result, DynamicFields: allFields}, nil
}

func (s *Service) Read(ctx context.Context, req domain.ReadRequest) (*domain.ReadResponse, error) {
	if req.OrganizationID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	entities, err := s.repo.List(ctx, domain.ListQuery{
		OrganizationID: req.OrganizationID,
		ID:             req.ID,
		EntityType:     strings.TrimSpace(req.EntityType),
		Status:         strings.TrimSpace(req.Status),
		Limit:          req.Limit,
		Offset:         req.Offset,
	})
	if err != nil {
		return nil, err
	}

	views := make([]domain.EntityView, 0, len(entities))
	ids := make([]snowflake.ID, 0, len(entities))
	for _, e := range entities {
		views = append(views, domain.EntityView{Entity: e})
		ids = append(ids, e.ID)
	}

	resp := &domain.ReadResponse{Entities: views}

	if req.IncludeDynamic {
		fields, err := s.repo.DynamicFieldsFor(ctx, req.OrganizationID, ids)
		if err != nil {
			return nil, err
		}
		byEntity := map[snowflake.ID][]domain.DynamicField{}
		for _, f := range fields {
			byEntity[f.EntityID] = append(byEntity[f.EntityID], f)
		}
		for i := range resp.Entities {
			resp.Entities[i].DynamicFields = byEntity[resp.Entities[i].ID]
		}

		issues, err := s.repo.OrphanedDynamicFields(ctx, req.OrganizationID)
		if err != nil {
			return nil, err
		}
		resp.IntegrityIssues = issues
	}

	if req.IncludeRelationships {
		edges, err := s.repo.RelationshipsFor(ctx, req.OrganizationID, ids)
		if err != nil {
			return nil, err
		}
		byEntity := map[snowflake.ID][]domain.EdgeProjection{}
		for _, edge := range edges {
			byEntity[edge.EntityID] = append(byEntity[edge.EntityID], edge)
		}
		for i := range resp.Entities {
			resp.Entities[i].Relationships = byEntity[resp.Entities[i].ID]
		}
	}

	return resp, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	if _, err := s.repo.GetByID(ctx, orgID, id); err != nil {
		return err
	}

	dependents, err := s.repo.CountDependents(ctx, orgID, id)
	if err != nil {
		return err
	}
	if dependents > 0 {
		return domain.ErrHasDependents
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, orgID, id)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, orgID, 0, "entity.deleted", id, nil)
	return nil
}

func (s *Service) Integrity(ctx context.Context, orgID snowflake.ID) ([]domain.IntegrityIssue, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.OrphanedDynamicFields(ctx, orgID)
}

func (s *Service) buildDynamicFields(e domain.Entity, inputs []domain.DynamicFieldInput, now time.Time) ([]domain.DynamicField, error) {
	fields := make([]domain.DynamicField, 0, len(inputs))
	for _, in := range inputs {
		fieldName := strings.TrimSpace(in.FieldName)
		if fieldName == "" {
			return nil, domain.ErrInvalidFieldName
		}

		fieldCode := in.SmartCode
		if strings.TrimSpace(fieldCode) == "" {
			fieldCode = e.SmartCode
		}
		normalized, err := smartcode.Normalize(fieldCode)
		if err != nil {
			return nil, err
		}

		field := domain.DynamicField{
			ID:             s.genID.Generate(),
			OrganizationID: e.OrganizationID,
			EntityID:       e.ID,
			FieldName:      fieldName,
			SmartCode:      normalized,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := applyFieldValue(&field, in); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func applyFieldValue(field *domain.DynamicField, in domain.DynamicFieldInput) error {
	fieldType := strings.TrimSpace(in.FieldType)
	if fieldType == "" {
		fieldType = inferFieldType(in.Value)
	}
	field.FieldType = fieldType

	switch fieldType {
	case domain.FieldTypeText:
		v, ok := in.Value.(string)
		if !ok {
			return domain.ErrInvalidFieldValue
		}
		field.ValueText = &v
	case domain.FieldTypeNumber:
		v, ok := toFloat(in.Value)
		if !ok {
			return domain.ErrInvalidFieldValue
		}
		field.ValueNumber = &v
	case domain.FieldTypeBoolean:
		v, ok := in.Value.(bool)
		if !ok {
			return domain.ErrInvalidFieldValue
		}
		field.ValueBoolean = &v
	case domain.FieldTypeDate:
		v, err := toTime(in.Value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueDate = &v
	case domain.FieldTypeJSON:
		raw, err := json.Marshal(in.Value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueJSON = datatypes.JSON(raw)
	default:
		return domain.ErrInvalidFieldValue
	}
	return nil
}

func inferFieldType(value any) string {
	switch value.(type) {
	case string:
		return domain.FieldTypeText
	case float64, float32, int, int32, int64:
		return domain.FieldTypeNumber
	case bool:
		return domain.FieldTypeBoolean
	case time.Time:
		return domain.FieldTypeDate
	default:
		return domain.FieldTypeJSON
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC(), nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	default:
		return time.Time{}, domain.ErrInvalidFieldValue
	}
}

func (s *Service) audit(ctx context.Context, orgID, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actor := ""
	if actorID != 0 {
		actor = actorID.String()
	}
	if err := s.auditSvc.AuditLog(ctx, orgID, actor, action, "entity", targetID.String(), metadata); err != nil {
		s.log.Warn("failed to write entity audit log", zap.Error(err))
	}
}
