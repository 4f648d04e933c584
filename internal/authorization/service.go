// Package authorization enforces role-based capability checks per tenant.
package authorization

import (
	"context"
	"errors"
)

// Objects guarded by the enforcer.
const (
	ObjectEntity       = "entity"
	ObjectRelationship = "relationship"
	ObjectTransaction  = "transaction"
	ObjectIdentity     = "identity"
	ObjectOrganization = "organization"
	ObjectAuditLog     = "audit_log"
)

// Actions on guarded objects.
const (
	ActionEntityView   = "entity.view"
	ActionEntityUpsert = "entity.upsert"
	ActionEntityDelete = "entity.delete"

	ActionRelationshipView       = "relationship.view"
	ActionRelationshipUpsert     = "relationship.upsert"
	ActionRelationshipDeactivate = "relationship.deactivate"

	ActionTransactionView    = "transaction.view"
	ActionTransactionPost    = "transaction.post"
	ActionTransactionReverse = "transaction.reverse"

	ActionIdentityIntrospect = "identity.introspect"
	ActionIdentityOnboard    = "identity.onboard"

	ActionOrganizationView      = "organization.view"
	ActionOrganizationProvision = "organization.provision"

	ActionAuditLogView = "audit_log.view"
)

type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
