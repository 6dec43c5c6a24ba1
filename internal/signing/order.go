package signing

import (
	"sort"

	"github.com/diewo77/go-esign/internal/models"
)

// orderIndex returns the recipient's explicit signing order, or a sentinel
// that sorts after every explicit index when none was assigned.
func orderIndex(r models.Recipient) int {
	if r.SigningOrder == nil {
		return int(^uint(0) >> 1)
	}
	return *r.SigningOrder
}

// GatingRecipients filters recs down to roles that count toward completion
// and returns them ordered by signing order index, ties broken by recipient
// id ascending. CC and assistant recipients never appear in the result.
func GatingRecipients(recs []models.Recipient) []models.Recipient {
	out := make([]models.Recipient, 0, len(recs))
	for _, r := range recs {
		if RoleCapability(r.Role).CountsTowardCompletion {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := orderIndex(out[i]), orderIndex(out[j])
		if oi != oj {
			return oi < oj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Turn decides whether the recipient identified by targetID may act on the
// envelope right now. It inspects only the supplied snapshot; envelope-level
// state (pending vs terminal) is the caller's concern.
func Turn(mode models.SigningOrderMode, recs []models.Recipient, targetID uint) (bool, *Error) {
	gating := GatingRecipients(recs)
	idx := -1
	for i, r := range gating {
		if r.ID == targetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		// CC, assistant, or a recipient of another envelope: never authorized to sign.
		return false, forbidden("you are not a signing party on this document")
	}
	target := gating[idx]
	if target.IsTerminal() {
		return false, invalidState("you have already finished signing this document")
	}
	if mode == models.OrderSequential {
		for _, r := range gating[:idx] {
			if !r.IsSigned() {
				return false, forbidden("it is not your turn to sign yet")
			}
		}
	}
	return true, nil
}

// IsLastUnsigned reports whether targetID is effectively the last gating
// recipient left to sign. In parallel mode that means at most one gating
// recipient remains unsigned; in sequential mode the target must be the last
// unsigned recipient in order. CC recipients are always excluded.
func IsLastUnsigned(mode models.SigningOrderMode, recs []models.Recipient, targetID uint) bool {
	gating := GatingRecipients(recs)
	if mode == models.OrderSequential {
		for i := len(gating) - 1; i >= 0; i-- {
			if !gating[i].IsSigned() {
				return gating[i].ID == targetID
			}
		}
		return false
	}
	unsigned := 0
	found := false
	for _, r := range gating {
		if !r.IsSigned() {
			unsigned++
			if r.ID == targetID {
				found = true
			}
		}
	}
	if unsigned == 0 {
		return false
	}
	return unsigned <= 1 && found
}

// PendingRecipientIDs lists the gating recipients that have not signed yet,
// in signing order.
func PendingRecipientIDs(recs []models.Recipient) []uint {
	ids := []uint{}
	for _, r := range GatingRecipients(recs) {
		if !r.IsSigned() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
