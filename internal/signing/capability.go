package signing

import "github.com/diewo77/go-esign/internal/models"

// Capability is the set of actions a recipient role may perform and whether
// the role gates envelope completion.
type Capability struct {
	CanSign                bool
	CanApprove             bool
	CountsTowardCompletion bool
	// CanActOnBehalf permits inserting values into other recipients'
	// non-signature fields. Signature fields always require the owning
	// recipient's own action; that rule is enforced in the field store and
	// is not configurable.
	CanActOnBehalf bool
}

// RoleCapability maps a recipient role to its capability set. Pure mapping,
// no side effects. Unknown roles get the empty capability set, which can do
// nothing.
func RoleCapability(role models.RecipientRole) Capability {
	switch role {
	case models.RoleSigner:
		return Capability{CanSign: true, CountsTowardCompletion: true}
	case models.RoleApprover:
		return Capability{CanApprove: true, CountsTowardCompletion: true}
	case models.RoleAssistant:
		return Capability{CanActOnBehalf: true}
	case models.RoleCC:
		return Capability{}
	default:
		return Capability{}
	}
}
