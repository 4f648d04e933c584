package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/heraerp/heracore/internal/audit/domain"
	"github.com/heraerp/heracore/internal/audit/repository"
	"github.com/heraerp/heracore/pkg/correlation"
	"github.com/heraerp/heracore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dsn string) (domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestAuditLogCapturesCorrelationID(t *testing.T) {
	svc, node := newTestService(t, "file:audit_correlation?mode=memory&cache=shared")
	orgID := node.Generate()

	ctx := correlation.ContextWithCorrelationID(context.Background(), "corr-123")
	err := svc.AuditLog(ctx, orgID, "42", "entity.upserted", "entity", "99", map[string]any{"entity_type": "CUSTOMER"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListAuditLogRequest{OrganizationID: orgID})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "entity.upserted", entry.Action)
	require.NotNil(t, entry.CorrelationID)
	assert.Equal(t, "corr-123", *entry.CorrelationID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	assert.Equal(t, "CUSTOMER", entry.Metadata["entity_type"])
}

func TestAuditLogValidation(t *testing.T) {
	svc, node := newTestService(t, "file:audit_validation?mode=memory&cache=shared")
	ctx := context.Background()

	err := svc.AuditLog(ctx, node.Generate(), "", "  ", "entity", "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	err = svc.AuditLog(ctx, 0, "", "entity.upserted", "entity", "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, node := newTestService(t, "file:audit_paging?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	for i := 0; i < 5; i++ {
		action := fmt.Sprintf("transaction.posted.%d", i)
		require.NoError(t, svc.AuditLog(ctx, orgID, "system", action, "transaction", "", nil))
	}

	page1, err := svc.List(ctx, domain.ListAuditLogRequest{
		Pagination:     pagination.Pagination{PageSize: 3},
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	require.Len(t, page1.AuditLogs, 3)
	require.True(t, page1.HasMore)
	assert.Equal(t, "transaction.posted.4", page1.AuditLogs[0].Action)

	page2, err := svc.List(ctx, domain.ListAuditLogRequest{
		Pagination:     pagination.Pagination{PageSize: 3, PageToken: page1.NextPageToken},
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	require.Len(t, page2.AuditLogs, 2)
	assert.False(t, page2.HasMore)
	assert.Equal(t, "transaction.posted.0", page2.AuditLogs[1].Action)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, node := newTestService(t, "file:audit_badinput?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	_, err := svc.List(ctx, domain.ListAuditLogRequest{
		Pagination:     pagination.Pagination{PageToken: "not-base64!"},
		OrganizationID: orgID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)

	_, err = svc.List(ctx, domain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
