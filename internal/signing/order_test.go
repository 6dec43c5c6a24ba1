package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-esign/internal/models"
)

func rec(id uint, role models.RecipientRole, order *int, status models.SigningStatus) models.Recipient {
	return models.Recipient{ID: id, Role: role, SigningOrder: order, SigningStatus: status}
}

func intp(n int) *int { return &n }

func TestGatingRecipientsFilterAndOrder(t *testing.T) {
	recs := []models.Recipient{
		rec(4, models.RoleCC, nil, models.SigningStatusNotSigned),
		rec(3, models.RoleSigner, intp(2), models.SigningStatusNotSigned),
		rec(2, models.RoleApprover, intp(1), models.SigningStatusNotSigned),
		rec(5, models.RoleAssistant, nil, models.SigningStatusNotSigned),
		rec(1, models.RoleSigner, intp(2), models.SigningStatusNotSigned),
	}
	gating := GatingRecipients(recs)
	require.Len(t, gating, 3)
	// order index first, then recipient id ascending on ties
	assert.Equal(t, uint(2), gating[0].ID)
	assert.Equal(t, uint(1), gating[1].ID)
	assert.Equal(t, uint(3), gating[2].ID)
}

func TestTurnParallel(t *testing.T) {
	recs := []models.Recipient{
		rec(1, models.RoleSigner, nil, models.SigningStatusNotSigned),
		rec(2, models.RoleSigner, nil, models.SigningStatusSigned),
		rec(3, models.RoleCC, nil, models.SigningStatusNotSigned),
	}
	ok, err := Turn(models.OrderParallel, recs, 1)
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = Turn(models.OrderParallel, recs, 2)
	assert.False(t, ok)
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidState, err.Kind)

	// CC is never authorized to sign
	ok, err = Turn(models.OrderParallel, recs, 3)
	assert.False(t, ok)
	require.NotNil(t, err)
	assert.Equal(t, KindForbidden, err.Kind)

	// unknown recipient
	ok, err = Turn(models.OrderParallel, recs, 99)
	assert.False(t, ok)
	require.NotNil(t, err)
	assert.Equal(t, KindForbidden, err.Kind)
}

func TestTurnSequential(t *testing.T) {
	recs := []models.Recipient{
		rec(1, models.RoleSigner, intp(1), models.SigningStatusNotSigned),
		rec(2, models.RoleSigner, intp(2), models.SigningStatusNotSigned),
	}
	ok, err := Turn(models.OrderSequential, recs, 2)
	assert.False(t, ok)
	require.NotNil(t, err)
	assert.Equal(t, KindForbidden, err.Kind)

	ok, err = Turn(models.OrderSequential, recs, 1)
	require.Nil(t, err)
	assert.True(t, ok)

	recs[0].SigningStatus = models.SigningStatusSigned
	ok, err = Turn(models.OrderSequential, recs, 2)
	require.Nil(t, err)
	assert.True(t, ok)
}

func TestOrderMonotonicity(t *testing.T) {
	// walking a 4-signer sequential envelope in order never authorizes
	// anyone ahead of an unsigned predecessor
	recs := []models.Recipient{}
	for i := 1; i <= 4; i++ {
		recs = append(recs, rec(uint(i), models.RoleSigner, intp(i), models.SigningStatusNotSigned))
	}
	for turn := 0; turn < 4; turn++ {
		for i := range recs {
			ok, _ := Turn(models.OrderSequential, recs, recs[i].ID)
			assert.Equal(t, i == turn, ok, "turn=%d recipient=%d", turn, recs[i].ID)
		}
		recs[turn].SigningStatus = models.SigningStatusSigned
	}
}

func TestIsLastUnsigned(t *testing.T) {
	recs := []models.Recipient{
		rec(1, models.RoleSigner, intp(1), models.SigningStatusSigned),
		rec(2, models.RoleSigner, intp(2), models.SigningStatusNotSigned),
		rec(3, models.RoleCC, nil, models.SigningStatusNotSigned),
	}
	// CC never counts, so recipient 2 is the last unsigned in both modes
	assert.True(t, IsLastUnsigned(models.OrderParallel, recs, 2))
	assert.True(t, IsLastUnsigned(models.OrderSequential, recs, 2))
	assert.False(t, IsLastUnsigned(models.OrderParallel, recs, 3))
	assert.False(t, IsLastUnsigned(models.OrderSequential, recs, 1))

	recs[1].SigningStatus = models.SigningStatusSigned
	assert.False(t, IsLastUnsigned(models.OrderParallel, recs, 2), "fully signed envelope has no last unsigned")
}

func TestPendingRecipientIDs(t *testing.T) {
	recs := []models.Recipient{
		rec(1, models.RoleSigner, intp(1), models.SigningStatusSigned),
		rec(2, models.RoleSigner, intp(2), models.SigningStatusNotSigned),
		rec(3, models.RoleCC, nil, models.SigningStatusNotSigned),
	}
	assert.Equal(t, []uint{2}, PendingRecipientIDs(recs))
}
