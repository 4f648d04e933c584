package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDenied(ctx, actor, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, orgID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}

	actorID, err := snowflake.ParseString(actor)
	if err != nil || actorID == 0 {
		return "", "", ErrInvalidActor
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return "", "", ErrInvalidOrganization
	}

	role, err := s.roleForActor(ctx, parsedOrgID, actorID)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("user:%s", actorID.String()), fmt.Sprintf("role:%s", strings.ToLower(role)), nil
}

// roleForActor reads the actor's membership role from the newest active
// MEMBER_OF edge in the organization.
func (s *ServiceImpl) roleForActor(ctx context.Context, orgID snowflake.ID, actorID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(relationship_data ->> 'role', '') AS role
		 FROM core_relationships
		 WHERE organization_id = ? AND from_entity_id = ? AND relationship_type = ? AND is_active = ?
		 ORDER BY updated_at DESC, id DESC
		 LIMIT 1`,
		orgID,
		actorID,
		relationshipdomain.TypeMemberOf,
		true,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor string, orgID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, parsedOrgID, actor, "authorization.denied", "authorization", "capability", map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	readOnly := [][2]string{
		{ObjectEntity, ActionEntityView},
		{ObjectRelationship, ActionRelationshipView},
		{ObjectTransaction, ActionTransactionView},
		{ObjectIdentity, ActionIdentityIntrospect},
		{ObjectOrganization, ActionOrganizationView},
	}
	write := [][2]string{
		{ObjectEntity, ActionEntityUpsert},
		{ObjectRelationship, ActionRelationshipUpsert},
		{ObjectRelationship, ActionRelationshipDeactivate},
		{ObjectTransaction, ActionTransactionPost},
		{ObjectTransaction, ActionTransactionReverse},
	}
	elevated := [][2]string{
		{ObjectEntity, ActionEntityDelete},
		{ObjectIdentity, ActionIdentityOnboard},
		{ObjectAuditLog, ActionAuditLogView},
	}

	policies := [][]string{}
	appendFor := func(role string, pairs [][2]string) {
		for _, pair := range pairs {
			policies = append(policies, []string{role, pair[0], pair[1]})
		}
	}

	// MEMBER is read-only. MANAGER writes but cannot delete entities or
	// onboard. OWNER and ADMIN hold everything. system mirrors owner for
	// engine-internal jobs, plus provisioning.
	appendFor("role:member", readOnly)
	appendFor("role:manager", readOnly)
	appendFor("role:manager", write)
	for _, role := range []string{"role:owner", "role:admin", "role:system"} {
		appendFor(role, readOnly)
		appendFor(role, write)
		appendFor(role, elevated)
	}
	policies = append(policies, []string{"role:system", ObjectOrganization, ActionOrganizationProvision})

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
