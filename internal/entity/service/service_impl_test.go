package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/heraerp/heracore/internal/entity/domain"
	"github.com/heraerp/heracore/internal/entity/repository"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	"github.com/heraerp/heracore/internal/smartcode"
	transactiondomain "github.com/heraerp/heracore/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dsn string) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Entity{},
		&domain.DynamicField{},
		&relationshipdomain.Relationship{},
		&transactiondomain.Transaction{},
		&transactiondomain.TransactionLine{},
	))

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

func TestUpsertMergesDynamicFields(t *testing.T) {
	svc, _, node := newTestService(t, "file:entity_merge?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	created, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "CUSTOMER",
		Name:           "Mario's Pizza",
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
		DynamicFields: []domain.DynamicFieldInput{
			{FieldName: "email", FieldType: domain.FieldTypeText, Value: "mario@example.com"},
			{FieldName: "credit_limit", FieldType: domain.FieldTypeNumber, Value: 5000.0},
		},
	})
	require.NoError(t, err)
	assert.Len(t, created.DynamicFields, 2)

	// Updating one field must not drop the others.
	updated, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		ID:             created.ID,
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
		DynamicFields: []domain.DynamicFieldInput{
			{FieldName: "credit_limit", FieldType: domain.FieldTypeNumber, Value: 7500.0},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.DynamicFields, 2)

	byName := map[string]domain.DynamicField{}
	for _, f := range updated.DynamicFields {
		byName[f.FieldName] = f
	}
	require.NotNil(t, byName["credit_limit"].ValueNumber)
	assert.Equal(t, 7500.0, *byName["credit_limit"].ValueNumber)
	require.NotNil(t, byName["email"].ValueText)
	assert.Equal(t, "mario@example.com", *byName["email"].ValueText)
}

func TestUpsertRejectsInvalidSmartCodeWithoutPersisting(t *testing.T) {
	svc, db, node := newTestService(t, "file:entity_smartcode?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "CUSTOMER",
		Name:           "No Code",
		SmartCode:      "INVALID.CODE",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, smartcode.ErrInvalidSmartCode))

	var count int64
	require.NoError(t, db.Model(&domain.Entity{}).Where("organization_id = ?", orgID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpsertRejectsBadFieldSmartCode(t *testing.T) {
	svc, db, node := newTestService(t, "file:entity_fieldcode?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "CUSTOMER",
		Name:           "Bad Field",
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
		DynamicFields: []domain.DynamicFieldInput{
			{FieldName: "email", FieldType: domain.FieldTypeText, Value: "x@example.com", SmartCode: "not-a-code"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, smartcode.ErrInvalidSmartCode))

	var count int64
	require.NoError(t, db.Model(&domain.Entity{}).Where("organization_id = ?", orgID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteBlockedByDependents(t *testing.T) {
	svc, db, node := newTestService(t, "file:entity_delete?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	customer, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "CUSTOMER",
		Name:           "Linked",
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
	})
	require.NoError(t, err)

	other, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "ORG",
		Name:           "Anchor",
		SmartCode:      "HERA.SYS.ORG.ENTITY.ANCHOR.V1",
	})
	require.NoError(t, err)

	edge := relationshipdomain.Relationship{
		ID:               node.Generate(),
		OrganizationID:   orgID,
		FromEntityID:     customer.ID,
		ToEntityID:       other.ID,
		RelationshipType: relationshipdomain.TypeMemberOf,
		IsActive:         true,
		SmartCode:        smartcode.CodeMembershipEdge,
		RelationshipData: datatypes.JSONMap{"role": "MEMBER"},
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.Create(&edge).Error)

	err = svc.Delete(ctx, orgID, customer.ID)
	assert.ErrorIs(t, err, domain.ErrHasDependents)

	// Archiving remains available when hard delete is blocked.
	archived, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		ID:             customer.ID,
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
		Status:         domain.StatusArchived,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)
}

func TestDeleteRemovesEntityAndDynamicData(t *testing.T) {
	svc, db, node := newTestService(t, "file:entity_delete_ok?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	created, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgID,
		EntityType:     "PRODUCT",
		Name:           "Plain",
		SmartCode:      "HERA.REST.INV.ENTITY.PRODUCT.V1",
		DynamicFields: []domain.DynamicFieldInput{
			{FieldName: "sku", FieldType: domain.FieldTypeText, Value: "SKU-1"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, orgID, created.ID))

	var entities, fields int64
	require.NoError(t, db.Model(&domain.Entity{}).Where("id = ?", created.ID).Count(&entities).Error)
	require.NoError(t, db.Model(&domain.DynamicField{}).Where("entity_id = ?", created.ID).Count(&fields).Error)
	assert.Zero(t, entities)
	assert.Zero(t, fields)
}

func TestReadScopedToOrganization(t *testing.T) {
	svc, _, node := newTestService(t, "file:entity_tenant?mode=memory&cache=shared")
	ctx := context.Background()
	orgA := node.Generate()
	orgB := node.Generate()

	created, err := svc.Upsert(ctx, domain.UpsertRequest{
		OrganizationID: orgA,
		EntityType:     "CUSTOMER",
		Name:           "Org A Customer",
		SmartCode:      "HERA.REST.CRM.ENTITY.CUSTOMER.V1",
	})
	require.NoError(t, err)

	resp, err := svc.Read(ctx, domain.ReadRequest{OrganizationID: orgB, ID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, resp.Entities)

	resp, err = svc.Read(ctx, domain.ReadRequest{OrganizationID: orgA, ID: created.ID})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)
	assert.Equal(t, "Org A Customer", resp.Entities[0].Name)
}

func TestIntegrityReportsOrphanedDynamicData(t *testing.T) {
	svc, db, node := newTestService(t, "file:entity_integrity?mode=memory&cache=shared")
	ctx := context.Background()
	orgID := node.Generate()

	value := "dangling"
	orphan := domain.DynamicField{
		ID:             node.Generate(),
		OrganizationID: orgID,
		EntityID:       node.Generate(), // never created
		FieldName:      "ghost",
		FieldType:      domain.FieldTypeText,
		ValueText:      &value,
		SmartCode:      "HERA.REST.CRM.FIELD.GHOST.V1",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(&orphan).Error)

	issues, err := svc.Integrity(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "ghost", issues[0].FieldName)
	assert.Equal(t, "missing_entity", issues[0].Reason)
}
