package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	entityrepository "github.com/heraerp/heracore/internal/entity/repository"
	identitydomain "github.com/heraerp/heracore/internal/identity/domain"
	"github.com/heraerp/heracore/internal/identity/repository"
	orgdomain "github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	relationshiprepository "github.com/heraerp/heracore/internal/relationship/repository"
	relationshipservice "github.com/heraerp/heracore/internal/relationship/service"
	"github.com/heraerp/heracore/internal/smartcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc   identitydomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
	// anchor is the ORG entity memberships point at.
	anchor snowflake.ID
}

func newFixture(t *testing.T, dsn string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&entitydomain.Entity{},
		&relationshipdomain.Relationship{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	relSvc := relationshipservice.NewService(relationshipservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  relationshiprepository.NewRepository(db),
	})
	svc := NewService(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Repo:            repository.NewRepository(db),
		EntityRepo:      entityrepository.NewRepository(db),
		RelationshipSvc: relSvc,
	})

	f := &fixture{svc: svc, db: db, node: node}
	f.orgID = f.seedOrg(t, "acme", "Acme")
	f.anchor = f.seedEntity(t, f.orgID, "ORG", "Acme", "", smartcode.CodeOrgAnchor)
	return f
}

func (f *fixture) seedOrg(t *testing.T, code, name string) snowflake.ID {
	t.Helper()
	org := orgdomain.Organization{
		ID:        f.node.Generate(),
		Code:      code,
		Name:      name,
		Status:    orgdomain.StatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&org).Error)
	return org.ID
}

func (f *fixture) seedEntity(t *testing.T, orgID snowflake.ID, entityType, name, code, smartCode string) snowflake.ID {
	t.Helper()
	e := entitydomain.Entity{
		ID:             f.node.Generate(),
		OrganizationID: orgID,
		EntityType:     entityType,
		Name:           name,
		Code:           code,
		SmartCode:      smartCode,
		Status:         entitydomain.StatusActive,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&e).Error)
	return e.ID
}

func (f *fixture) seedEdge(t *testing.T, orgID, from, to snowflake.ID, relType string, data map[string]any, updatedAt time.Time) {
	t.Helper()
	rel := relationshipdomain.Relationship{
		ID:               f.node.Generate(),
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: relType,
		RelationshipData: datatypes.JSONMap(data),
		SmartCode:        smartcode.CodeMembershipEdge,
		IsActive:         true,
		CreatedAt:        updatedAt,
		UpdatedAt:        updatedAt,
	}
	require.NoError(t, f.db.Create(&rel).Error)
}

func TestIntrospectGrantsRolesAndApps(t *testing.T) {
	f := newFixture(t, "file:id_introspect?mode=memory&cache=shared")
	ctx := context.Background()

	actor := f.seedEntity(t, f.orgID, "USER", "Owner", "", smartcode.CodeUserEntity)
	f.seedEdge(t, f.orgID, actor, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleOwner}, time.Now().UTC())

	auditor := f.seedEntity(t, f.orgID, "ROLE", "Auditor", "AUDITOR", "HERA.SYS.IDENTITY.ENTITY.ROLE.V1")
	f.seedEdge(t, f.orgID, actor, auditor, relationshipdomain.TypeHasRole, nil, time.Now().UTC())

	app := f.seedEntity(t, f.orgID, "APP", "Point of Sale", "POS", "HERA.SYS.IDENTITY.ENTITY.APP.V1")
	f.seedEdge(t, f.orgID, f.anchor, app, relationshipdomain.TypeOrgHasApp, nil, time.Now().UTC())

	resp, err := f.svc.Introspect(ctx, actor)
	require.NoError(t, err)

	require.Len(t, resp.Organizations, 1)
	grant := resp.Organizations[0]
	assert.Equal(t, f.orgID.String(), grant.ID)
	assert.Equal(t, "acme", grant.Code)
	assert.Equal(t, orgdomain.RoleOwner, grant.PrimaryRole)
	assert.Equal(t, []string{orgdomain.RoleOwner, "AUDITOR"}, grant.Roles)
	assert.Equal(t, []string{"POS"}, grant.Apps)
	assert.Equal(t, grant.ID, resp.DefaultOrganizationID)
}

func TestIntrospectCollapsesDuplicateMemberships(t *testing.T) {
	f := newFixture(t, "file:id_dupes?mode=memory&cache=shared")
	ctx := context.Background()

	actor := f.seedEntity(t, f.orgID, "USER", "Member", "", smartcode.CodeUserEntity)
	team := f.seedEntity(t, f.orgID, "TEAM", "Back Office", "", "HERA.SYS.ORG.ENTITY.TEAM.V1")

	// Two active membership edges in the same organization; the most recently
	// updated one decides the primary role.
	older := time.Now().UTC().Add(-time.Hour)
	f.seedEdge(t, f.orgID, actor, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleMember}, older)
	f.seedEdge(t, f.orgID, actor, team, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleAdmin}, time.Now().UTC())

	resp, err := f.svc.Introspect(ctx, actor)
	require.NoError(t, err)

	require.Len(t, resp.Organizations, 1)
	assert.Equal(t, orgdomain.RoleAdmin, resp.Organizations[0].PrimaryRole)
}

func TestIntrospectHonorsDefaultFlag(t *testing.T) {
	f := newFixture(t, "file:id_default?mode=memory&cache=shared")
	ctx := context.Background()

	actor := f.seedEntity(t, f.orgID, "USER", "Member", "", smartcode.CodeUserEntity)
	f.seedEdge(t, f.orgID, actor, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleMember, "is_default": "true"},
		time.Now().UTC().Add(-time.Hour))

	otherOrg := f.seedOrg(t, "beta", "Beta")
	otherAnchor := f.seedEntity(t, otherOrg, "ORG", "Beta", "", smartcode.CodeOrgAnchor)
	f.seedEdge(t, otherOrg, actor, otherAnchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleOwner}, time.Now().UTC())

	resp, err := f.svc.Introspect(ctx, actor)
	require.NoError(t, err)

	// The newer membership lists first, but the flagged one is the default.
	require.Len(t, resp.Organizations, 2)
	assert.Equal(t, otherOrg.String(), resp.Organizations[0].ID)
	assert.Equal(t, f.orgID.String(), resp.DefaultOrganizationID)
}

func TestIntrospectRequiresActor(t *testing.T) {
	f := newFixture(t, "file:id_noactor?mode=memory&cache=shared")
	_, err := f.svc.Introspect(context.Background(), 0)
	assert.ErrorIs(t, err, identitydomain.ErrInvalidActor)
}

func TestOnboardCreatesUserAndMembership(t *testing.T) {
	f := newFixture(t, "file:id_onboard?mode=memory&cache=shared")
	ctx := context.Background()

	owner := f.seedEntity(t, f.orgID, "USER", "Owner", "", smartcode.CodeUserEntity)
	f.seedEdge(t, f.orgID, owner, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleOwner}, time.Now().UTC())

	resp, err := f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    owner,
		TargetName:     "New Hire",
		Role:           "manager",
	})
	require.NoError(t, err)
	assert.Equal(t, orgdomain.RoleManager, resp.Role)

	var member entitydomain.Entity
	require.NoError(t, f.db.First(&member, "name = ? AND organization_id = ?", "New Hire", f.orgID).Error)
	assert.Equal(t, "USER", member.EntityType)
	assert.Equal(t, smartcode.CodeUserEntity, member.SmartCode)

	var edge relationshipdomain.Relationship
	require.NoError(t, f.db.First(&edge,
		"organization_id = ? AND from_entity_id = ? AND to_entity_id = ? AND relationship_type = ?",
		f.orgID, member.ID, f.anchor, relationshipdomain.TypeMemberOf).Error)
	assert.Equal(t, orgdomain.RoleManager, edge.RelationshipData["role"])
	assert.True(t, edge.IsActive)

	// The new member can introspect their grant immediately.
	intro, err := f.svc.Introspect(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, intro.Organizations, 1)
	assert.Equal(t, orgdomain.RoleManager, intro.Organizations[0].PrimaryRole)
}

func TestOnboardForbiddenForNonElevatedRequester(t *testing.T) {
	f := newFixture(t, "file:id_forbidden?mode=memory&cache=shared")
	ctx := context.Background()

	member := f.seedEntity(t, f.orgID, "USER", "Member", "", smartcode.CodeUserEntity)
	f.seedEdge(t, f.orgID, member, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleMember}, time.Now().UTC())

	_, err := f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    member,
		TargetName:     "New Hire",
	})
	assert.ErrorIs(t, err, identitydomain.ErrForbidden)

	// No membership at all is forbidden too.
	stranger := f.seedEntity(t, f.orgID, "USER", "Stranger", "", smartcode.CodeUserEntity)
	_, err = f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    stranger,
		TargetName:     "New Hire",
	})
	assert.ErrorIs(t, err, identitydomain.ErrForbidden)
}

func TestOnboardValidation(t *testing.T) {
	f := newFixture(t, "file:id_validation?mode=memory&cache=shared")
	ctx := context.Background()

	owner := f.seedEntity(t, f.orgID, "USER", "Owner", "", smartcode.CodeUserEntity)
	f.seedEdge(t, f.orgID, owner, f.anchor, relationshipdomain.TypeMemberOf,
		map[string]any{"role": orgdomain.RoleOwner}, time.Now().UTC())

	_, err := f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    owner,
		TargetName:     "New Hire",
		Role:           "SUPERUSER",
	})
	assert.ErrorIs(t, err, identitydomain.ErrInvalidRole)

	// Existing target must actually exist in the organization.
	_, err = f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    owner,
		TargetEntityID: f.node.Generate(),
	})
	assert.ErrorIs(t, err, identitydomain.ErrInvalidTarget)

	// A named target with no entity id needs a name.
	_, err = f.svc.Onboard(ctx, identitydomain.OnboardRequest{
		OrganizationID: f.orgID,
		RequesterID:    owner,
	})
	assert.ErrorIs(t, err, identitydomain.ErrInvalidTarget)
}
