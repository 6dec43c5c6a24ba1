package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-esign/internal/models"
)

// Engine implements the signing workflow: turn resolution, field value
// commits, recipient status transitions, completion detection, and the
// exactly-once finalization hand-off. All collaborators are injected; the
// engine holds no ambient state.
type Engine struct {
	db        *gorm.DB
	notifier  Notifier
	finalizer Finalizer
	log       zerolog.Logger
}

func New(db *gorm.DB, notifier Notifier, finalizer Finalizer, log zerolog.Logger) *Engine {
	return &Engine{db: db, notifier: notifier, finalizer: finalizer, log: log}
}

// TurnDecision is the outcome of a turn query. Reason and Message are set
// only when Authorized is false.
type TurnDecision struct {
	Authorized bool   `json:"authorized"`
	IsLast     bool   `json:"is_last,omitempty"`
	Reason     Kind   `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CompletionState summarizes how far an envelope is from completion.
type CompletionState struct {
	IsComplete          bool   `json:"is_complete"`
	PendingRecipientIDs []uint `json:"pending_recipient_ids"`
}

// lockEnvelope loads the envelope and its recipients inside tx, taking a row
// lock on the envelope. Every mutating operation locks the envelope first, so
// concurrent requests touching the same envelope serialize here. sqlite has a
// single writer and needs no explicit lock clause.
func (e *Engine) lockEnvelope(tx *gorm.DB, id uint) (*models.Envelope, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var env models.Envelope
	if err := q.First(&env, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document not found")
		}
		return nil, fmt.Errorf("load envelope: %w", err)
	}
	if err := tx.Where("envelope_id = ?", env.ID).Order("id").Find(&env.Recipients).Error; err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	return &env, nil
}

func (e *Engine) recipientByToken(tx *gorm.DB, token string) (*models.Recipient, error) {
	var rec models.Recipient
	if err := tx.Where("token = ?", token).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("signing link not found")
		}
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	return &rec, nil
}

// ResolveTurn answers "may the holder of this token act on this envelope
// right now". Not being authorized is a decision, not an error; only a
// missing token or envelope is surfaced as NotFound.
func (e *Engine) ResolveTurn(ctx context.Context, envelopeID uint, token string) (TurnDecision, error) {
	tx := e.db.WithContext(ctx)
	rec, err := e.recipientByToken(tx, token)
	if err != nil {
		return TurnDecision{}, err
	}
	if rec.EnvelopeID != envelopeID {
		return TurnDecision{}, notFound("signing link not found")
	}
	env, err := e.loadEnvelope(tx, envelopeID)
	if err != nil {
		return TurnDecision{}, err
	}
	if env.IsDraft() {
		return deny(invalidState("this document has not been sent for signing yet")), nil
	}
	if env.IsTerminal() {
		return deny(forbidden("this document is no longer open for signing")), nil
	}
	if ok, terr := Turn(env.OrderMode, env.Recipients, rec.ID); !ok {
		return deny(terr), nil
	}
	return TurnDecision{
		Authorized: true,
		IsLast:     IsLastUnsigned(env.OrderMode, env.Recipients, rec.ID),
	}, nil
}

func deny(err *Error) TurnDecision {
	return TurnDecision{Authorized: false, Reason: err.Kind, Message: err.Message}
}

// loadEnvelope is the lock-free read used by queries.
func (e *Engine) loadEnvelope(tx *gorm.DB, id uint) (*models.Envelope, error) {
	var env models.Envelope
	if err := tx.First(&env, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document not found")
		}
		return nil, fmt.Errorf("load envelope: %w", err)
	}
	if err := tx.Where("envelope_id = ?", env.ID).Order("id").Find(&env.Recipients).Error; err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	return &env, nil
}

// SubmitFieldValue validates and commits one recipient's input for one field.
// The value commit and the inserted flag flip happen in one transaction.
// Resubmitting an identical value is an idempotent no-op; a differing value
// is a Conflict.
func (e *Engine) SubmitFieldValue(ctx context.Context, token string, fieldID uint, in Input) (models.FieldValue, error) {
	var result models.FieldValue
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := e.recipientByToken(tx, token)
		if err != nil {
			return err
		}
		env, err := e.lockEnvelope(tx, actor.EnvelopeID)
		if err != nil {
			return err
		}
		if env.IsDraft() {
			return invalidState("this document has not been sent for signing yet")
		}
		if env.IsTerminal() {
			return invalidState("this document is no longer open for signing")
		}

		var field models.Field
		if err := tx.First(&field, fieldID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("field not found")
			}
			return fmt.Errorf("load field: %w", err)
		}
		if field.EnvelopeID != env.ID {
			return notFound("field not found")
		}

		owner := actor
		if field.RecipientID != actor.ID {
			if !RoleCapability(actor.Role).CanActOnBehalf {
				return forbidden("this field belongs to another recipient")
			}
			if field.Type == models.FieldSignature {
				// Hard rule: assistants never supply signatures for others.
				return forbidden("signature fields must be completed by their owner")
			}
			owner = findRecipient(env.Recipients, field.RecipientID)
			if owner == nil {
				return notFound("field not found")
			}
		}
		if ok, terr := Turn(env.OrderMode, env.Recipients, owner.ID); !ok {
			return terr
		}

		value, signedName, verr := resolveValue(field, *owner, in)
		if verr != nil {
			return verr
		}

		if field.Inserted {
			var existing models.FieldValue
			if err := tx.Where("field_id = ?", field.ID).First(&existing).Error; err != nil {
				return fmt.Errorf("load field value: %w", err)
			}
			if existing.Value == value && existing.SignedName == signedName {
				result = existing
				return nil
			}
			return conflict("this field has already been completed with a different value")
		}

		fv := models.FieldValue{
			FieldID:    field.ID,
			Value:      value,
			SignedName: signedName,
			InsertedAt: time.Now().UTC(),
		}
		if err := tx.Create(&fv).Error; err != nil {
			return fmt.Errorf("commit field value: %w", err)
		}
		res := tx.Model(&models.Field{}).
			Where("id = ? AND inserted = ?", field.ID, false).
			Update("inserted", true)
		if res.Error != nil {
			return fmt.Errorf("mark field inserted: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflict("this field has already been completed")
		}
		result = fv
		return nil
	})
	return result, err
}

func findRecipient(recs []models.Recipient, id uint) *models.Recipient {
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i]
		}
	}
	return nil
}

// CompleteSigning records that the recipient has finished: it verifies every
// required field is inserted, flips the signing status, and runs completion
// detection inside the same transaction. When this recipient was the last
// gating one, the envelope transitions to completed via a conditional update,
// which makes the finalization hand-off exactly-once under concurrency.
func (e *Engine) CompleteSigning(ctx context.Context, token string) error {
	var fin struct {
		completed bool
		env       models.Envelope
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := e.recipientByToken(tx, token)
		if err != nil {
			return err
		}
		env, err := e.lockEnvelope(tx, rec.EnvelopeID)
		if err != nil {
			return err
		}
		if env.IsDraft() {
			return invalidState("this document has not been sent for signing yet")
		}
		if env.IsTerminal() {
			if env.Status == models.EnvelopeStatusCompleted && rec.IsSigned() {
				// Concurrent last-signer race loser: already completed, not an error.
				return nil
			}
			return invalidState("this document is no longer open for signing")
		}
		if !RoleCapability(rec.Role).CountsTowardCompletion {
			return forbidden("you are not a signing party on this document")
		}
		switch rec.SigningStatus {
		case models.SigningStatusSigned:
			// Duplicate submission: idempotent.
			return nil
		case models.SigningStatusRejected:
			return invalidState("you have declined to sign this document")
		}
		if ok, terr := Turn(env.OrderMode, env.Recipients, rec.ID); !ok {
			return terr
		}

		var fields []models.Field
		if err := tx.Where("recipient_id = ?", rec.ID).Find(&fields).Error; err != nil {
			return fmt.Errorf("load fields: %w", err)
		}
		for _, f := range fields {
			if f.Inserted {
				continue
			}
			// Signature fields are always required to finish.
			if f.Type == models.FieldSignature || f.Meta.Required {
				return invalid("fields_incomplete", "all required fields must be completed before finishing")
			}
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Recipient{}).
			Where("id = ? AND signing_status = ?", rec.ID, models.SigningStatusNotSigned).
			Updates(map[string]any{"signing_status": models.SigningStatusSigned, "signed_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark recipient signed: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflict("your signature was already recorded")
		}
		for i := range env.Recipients {
			if env.Recipients[i].ID == rec.ID {
				env.Recipients[i].SigningStatus = models.SigningStatusSigned
			}
		}

		if allGatingSigned(env.Recipients) {
			res := tx.Model(&models.Envelope{}).
				Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusPending).
				Updates(map[string]any{"status": models.EnvelopeStatusCompleted, "completed_at": now})
			if res.Error != nil {
				return fmt.Errorf("complete envelope: %w", res.Error)
			}
			// RowsAffected is the exactly-once gate: only the transition
			// winner hands off to finalization.
			fin.completed = res.RowsAffected == 1
			fin.env = *env
		}
		return nil
	})
	if err != nil {
		return err
	}
	if fin.completed {
		if ferr := e.finalizer.Finalize(ctx, fin.env.ID); ferr != nil {
			e.log.Error().Err(ferr).Uint("envelope", fin.env.ID).Msg("finalization dispatch failed")
		}
		if nerr := e.notifier.EnvelopeCompleted(ctx, fin.env); nerr != nil {
			e.log.Error().Err(nerr).Uint("envelope", fin.env.ID).Msg("completion notification failed")
		}
	}
	return nil
}

func allGatingSigned(recs []models.Recipient) bool {
	gating := GatingRecipients(recs)
	if len(gating) == 0 {
		return false
	}
	for _, r := range gating {
		if !r.IsSigned() {
			return false
		}
	}
	return true
}

// RejectSigning is the recipient declining to sign: a first-class terminal
// transition. Any gating recipient may decline while the envelope is pending,
// regardless of whose turn it is; the envelope short-circuits to rejected.
func (e *Engine) RejectSigning(ctx context.Context, token, reason string) error {
	var fin struct {
		rejected bool
		env      models.Envelope
		rec      models.Recipient
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := e.recipientByToken(tx, token)
		if err != nil {
			return err
		}
		env, err := e.lockEnvelope(tx, rec.EnvelopeID)
		if err != nil {
			return err
		}
		if env.IsDraft() {
			return invalidState("this document has not been sent for signing yet")
		}
		if env.IsTerminal() {
			if env.Status == models.EnvelopeStatusRejected && rec.SigningStatus == models.SigningStatusRejected {
				return nil
			}
			return invalidState("this document is no longer open for signing")
		}
		if !RoleCapability(rec.Role).CountsTowardCompletion {
			return forbidden("you are not a signing party on this document")
		}
		switch rec.SigningStatus {
		case models.SigningStatusSigned:
			return invalidState("you have already signed this document")
		case models.SigningStatusRejected:
			return nil
		}

		res := tx.Model(&models.Recipient{}).
			Where("id = ? AND signing_status = ?", rec.ID, models.SigningStatusNotSigned).
			Updates(map[string]any{"signing_status": models.SigningStatusRejected, "reject_reason": reason})
		if res.Error != nil {
			return fmt.Errorf("mark recipient rejected: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return conflict("your response was already recorded")
		}

		res = tx.Model(&models.Envelope{}).
			Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusPending).
			Update("status", models.EnvelopeStatusRejected)
		if res.Error != nil {
			return fmt.Errorf("reject envelope: %w", res.Error)
		}
		fin.rejected = res.RowsAffected == 1
		fin.env = *env
		fin.rec = *rec
		return nil
	})
	if err != nil {
		return err
	}
	if fin.rejected {
		if nerr := e.notifier.EnvelopeRejected(ctx, fin.env, fin.rec, reason); nerr != nil {
			e.log.Error().Err(nerr).Uint("envelope", fin.env.ID).Msg("rejection notification failed")
		}
	}
	return nil
}

// MarkRecipientRead flips the read status to opened on first access to the
// signing view. Idempotent; never reverts.
func (e *Engine) MarkRecipientRead(ctx context.Context, token string) error {
	res := e.db.WithContext(ctx).Model(&models.Recipient{}).
		Where("token = ?", token).
		Update("read_status", models.ReadStatusOpened)
	if res.Error != nil {
		return fmt.Errorf("mark recipient read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("signing link not found")
	}
	return nil
}

// EnvelopeByToken resolves the envelope a signing token belongs to, for the
// signing view.
func (e *Engine) EnvelopeByToken(ctx context.Context, token string) (*models.Envelope, *models.Recipient, error) {
	tx := e.db.WithContext(ctx)
	rec, err := e.recipientByToken(tx, token)
	if err != nil {
		return nil, nil, err
	}
	env, err := e.loadEnvelope(tx, rec.EnvelopeID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Where("envelope_id = ?", env.ID).Preload("Value").Order("id").Find(&env.Fields).Error; err != nil {
		return nil, nil, fmt.Errorf("load fields: %w", err)
	}
	return env, rec, nil
}

// EnvelopeCompletionState reports whether the envelope is complete and which
// gating recipients are still pending.
func (e *Engine) EnvelopeCompletionState(ctx context.Context, envelopeID uint) (CompletionState, error) {
	env, err := e.loadEnvelope(e.db.WithContext(ctx), envelopeID)
	if err != nil {
		return CompletionState{}, err
	}
	return CompletionState{
		IsComplete:          env.Status == models.EnvelopeStatusCompleted,
		PendingRecipientIDs: PendingRecipientIDs(env.Recipients),
	}, nil
}
