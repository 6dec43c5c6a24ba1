package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diewo77/go-esign/internal/models"
)

func TestRoleCapability(t *testing.T) {
	tests := []struct {
		role models.RecipientRole
		want Capability
	}{
		{models.RoleSigner, Capability{CanSign: true, CountsTowardCompletion: true}},
		{models.RoleApprover, Capability{CanApprove: true, CountsTowardCompletion: true}},
		{models.RoleCC, Capability{}},
		{models.RoleAssistant, Capability{CanActOnBehalf: true}},
		{models.RecipientRole("bogus"), Capability{}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RoleCapability(tc.role), "role %s", tc.role)
	}
}

func TestOnlyGatingRolesCountTowardCompletion(t *testing.T) {
	for _, role := range []models.RecipientRole{models.RoleCC, models.RoleAssistant} {
		cap := RoleCapability(role)
		assert.False(t, cap.CountsTowardCompletion, "%s must not gate completion", role)
		assert.False(t, cap.CanSign, "%s must not sign", role)
	}
}
