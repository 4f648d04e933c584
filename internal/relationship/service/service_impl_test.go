package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	"github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/relationship/repository"
	"github.com/heraerp/heracore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dsn string) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entitydomain.Entity{}, &domain.Relationship{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
	})
	return svc, db, node
}

func seedEntity(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, name string) snowflake.ID {
	t.Helper()
	e := entitydomain.Entity{
		ID:             node.Generate(),
		OrganizationID: orgID,
		EntityType:     "CUSTOMER",
		Name:           name,
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
		Status:         entitydomain.StatusActive,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(&e).Error)
	return e.ID
}

func TestUpsertIsIdempotentOnNaturalKey(t *testing.T) {
	svc, db, node := newTestService(t, "file:rel_idempotent?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()
	from := seedEntity(t, db, node, orgID, "From")
	to := seedEntity(t, db, node, orgID, "To")

	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "REFERS_TO",
		RelationshipData: map[string]any{"weight": 1.0},
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
	})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "REFERS_TO",
		RelationshipData: map[string]any{"weight": 2.0},
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V2",
	})
	require.NoError(t, err)

	// Same surviving row, with the second write's payload.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "HERA.REST.CRM.REL.REFERRAL.V2", second.SmartCode)
	assert.Equal(t, 2.0, second.RelationshipData["weight"])

	var count int64
	require.NoError(t, db.Model(&domain.Relationship{}).
		Where("organization_id = ? AND from_entity_id = ? AND to_entity_id = ? AND relationship_type = ?",
			orgID, from, to, "REFERS_TO").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertReactivatesDeactivatedEdge(t *testing.T) {
	svc, db, node := newTestService(t, "file:rel_reactivate?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()
	from := seedEntity(t, db, node, orgID, "From")
	to := seedEntity(t, db, node, orgID, "To")

	rel, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "REFERS_TO",
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, orgID, rel.ID))

	revived, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "REFERS_TO",
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
	})
	require.NoError(t, err)
	assert.Equal(t, rel.ID, revived.ID)
	assert.True(t, revived.IsActive)
}

func TestUpsertRejectsCrossOrgEndpoint(t *testing.T) {
	svc, db, node := newTestService(t, "file:rel_crossorg?mode=memory&cache=shared")
	ctx := context.Background()
	orgA := node.Generate()
	orgB := node.Generate()
	from := seedEntity(t, db, node, orgA, "In A")
	foreign := seedEntity(t, db, node, orgB, "In B")

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgA,
		FromEntityID:     from,
		ToEntityID:       foreign,
		RelationshipType: "REFERS_TO",
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueryPaginatesAndProjectsCounterparty(t *testing.T) {
	svc, db, node := newTestService(t, "file:rel_query?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()
	hub := seedEntity(t, db, node, orgID, "Hub")

	for i := 0; i < 3; i++ {
		spoke := seedEntity(t, db, node, orgID, "Spoke")
		_, err := svc.Upsert(ctx, domain.UpsertRequest{
			OrganizationID:   orgID,
			FromEntityID:     hub,
			ToEntityID:       spoke,
			RelationshipType: "REFERS_TO",
			SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
		})
		require.NoError(t, err)
	}

	resp, err := svc.Query(ctx, domain.QueryRequest{
		OrganizationID: orgID,
		FromEntityID:   hub,
	})
	require.NoError(t, err)
	require.Len(t, resp.Relationships, 3)
	assert.Equal(t, "Spoke", resp.Relationships[0].Counterparty.Name)
	assert.False(t, resp.HasMore)

	// Page through with size 2.
	page1, err := svc.Query(ctx, domain.QueryRequest{
		Pagination:     pagination.Pagination{PageSize: 2},
		OrganizationID: orgID,
		FromEntityID:   hub,
	})
	require.NoError(t, err)
	require.Len(t, page1.Relationships, 2)
	require.True(t, page1.HasMore)

	page2, err := svc.Query(ctx, domain.QueryRequest{
		Pagination:     pagination.Pagination{PageSize: 2, PageToken: page1.NextPageToken},
		OrganizationID: orgID,
		FromEntityID:   hub,
	})
	require.NoError(t, err)
	require.Len(t, page2.Relationships, 1)
	assert.False(t, page2.HasMore)
}

func TestQueryExcludesInactiveByDefault(t *testing.T) {
	svc, db, node := newTestService(t, "file:rel_inactive?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()
	from := seedEntity(t, db, node, orgID, "From")
	to := seedEntity(t, db, node, orgID, "To")

	rel, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "REFERS_TO",
		SmartCode:        "HERA.REST.CRM.REL.REFERRAL.V1",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, orgID, rel.ID))

	resp, err := svc.Query(ctx, domain.QueryRequest{OrganizationID: orgID, FromEntityID: from})
	require.NoError(t, err)
	assert.Empty(t, resp.Relationships)

	resp, err = svc.Query(ctx, domain.QueryRequest{
		OrganizationID:  orgID,
		FromEntityID:    from,
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Relationships, 1)
}

func TestDeactivateUnknownRelationship(t *testing.T) {
	svc, _, node := newTestService(t, "file:rel_missing?mode=memory&cache=shared")
	err := svc.Deactivate(context.Background(), node.Generate(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
