package smartcode

// Engine-reserved codes under the SYS family. These classify the rows the
// engine writes for itself: tenant anchors, user entities, and membership
// edges.
const (
	CodeOrgAnchor      = "HERA.SYS.ORG.ENTITY.ANCHOR.V1"
	CodeUserEntity     = "HERA.SYS.IDENTITY.ENTITY.USER.V1"
	CodeMembershipEdge = "HERA.SYS.IDENTITY.REL.MEMBERSHIP.V1"
	CodeRoleEdge       = "HERA.SYS.IDENTITY.REL.ROLE.V1"
	CodeOrgAppEdge     = "HERA.SYS.IDENTITY.REL.APP.V1"
)
