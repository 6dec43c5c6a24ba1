package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/internal/signing"
	"github.com/diewo77/go-esign/validation"
)

// EnvelopeService is the sender-side surface: assembling a draft envelope
// and sending it out for signature. Everything after send belongs to the
// signing engine.
type EnvelopeService struct {
	DB       *gorm.DB
	Notifier signing.Notifier
	Log      zerolog.Logger
}

func NewEnvelopeService(db *gorm.DB, notifier signing.Notifier, log zerolog.Logger) *EnvelopeService {
	return &EnvelopeService{DB: db, Notifier: notifier, Log: log}
}

// ownedEnvelope loads an envelope scoped to its owner. A foreign or missing
// envelope is NotFound either way, so ownership is not probeable.
func (s *EnvelopeService) ownedEnvelope(tx *gorm.DB, userID, envID uint) (*models.Envelope, error) {
	var env models.Envelope
	if err := tx.Where("user_id = ?", userID).First(&env, envID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, signing.NewError(signing.KindNotFound, "document not found")
		}
		return nil, fmt.Errorf("load envelope: %w", err)
	}
	return &env, nil
}

func (s *EnvelopeService) CreateDraft(ctx context.Context, userID uint, title string, mode models.SigningOrderMode) (models.Envelope, error) {
	if title == "" {
		return models.Envelope{}, signing.NewValidation("title_required", "a title is required")
	}
	switch mode {
	case models.OrderParallel, models.OrderSequential:
	case "":
		mode = models.OrderParallel
	default:
		return models.Envelope{}, signing.NewValidation("invalid_order_mode", "the signing order mode must be parallel or sequential")
	}
	env := models.Envelope{
		UserID:    userID,
		Title:     title,
		Status:    models.EnvelopeStatusDraft,
		OrderMode: mode,
	}
	if err := s.DB.WithContext(ctx).Create(&env).Error; err != nil {
		return models.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}
	return env, nil
}

// AddRecipient attaches a participant to a draft envelope and issues their
// signing token. The token is immutable from here on.
func (s *EnvelopeService) AddRecipient(ctx context.Context, userID, envID uint, role models.RecipientRole, email, name string, order *int) (models.Recipient, error) {
	switch role {
	case models.RoleSigner, models.RoleApprover, models.RoleCC, models.RoleAssistant:
	default:
		return models.Recipient{}, signing.NewValidation("invalid_role", "the recipient role is not recognized")
	}
	if !validation.IsEmail(email) {
		return models.Recipient{}, signing.NewValidation("invalid_email", "the recipient email is not valid")
	}
	var rec models.Recipient
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		env, err := s.ownedEnvelope(tx, userID, envID)
		if err != nil {
			return err
		}
		if !env.IsDraft() {
			return signing.NewError(signing.KindInvalidState, "recipients can only be changed while the document is a draft")
		}
		rec = models.Recipient{
			EnvelopeID:    env.ID,
			Role:          role,
			Email:         email,
			Name:          name,
			Token:         uuid.NewString(),
			SigningOrder:  order,
			SendStatus:    models.SendStatusNotSent,
			ReadStatus:    models.ReadStatusNotOpened,
			SigningStatus: models.SigningStatusNotSigned,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("create recipient: %w", err)
		}
		return nil
	})
	return rec, err
}

// AddField places a typed field for one recipient on a draft envelope.
// Type-specific metadata is validated now, at configuration time, not only
// when a signer submits a value.
func (s *EnvelopeService) AddField(ctx context.Context, userID, envID uint, field models.Field) (models.Field, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		env, err := s.ownedEnvelope(tx, userID, envID)
		if err != nil {
			return err
		}
		if !env.IsDraft() {
			return signing.NewError(signing.KindInvalidState, "fields can only be changed while the document is a draft")
		}
		var rec models.Recipient
		if err := tx.Where("envelope_id = ?", env.ID).First(&rec, field.RecipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return signing.NewError(signing.KindNotFound, "recipient not found")
			}
			return fmt.Errorf("load recipient: %w", err)
		}
		if !signing.RoleCapability(rec.Role).CountsTowardCompletion {
			return signing.NewValidation("recipient_cannot_own_fields", "viewer and assistant recipients cannot have fields")
		}
		if err := signing.ValidateFieldConfig(field.Type, field.Meta); err != nil {
			return err
		}
		field.EnvelopeID = env.ID
		field.Inserted = false
		if field.Page <= 0 {
			field.Page = 1
		}
		if err := tx.Create(&field).Error; err != nil {
			return fmt.Errorf("create field: %w", err)
		}
		return nil
	})
	return field, err
}

// Send transitions a draft to pending and dispatches the initial
// notifications. Notification failures do not roll the transition back; the
// recipient's send status simply stays not_sent for a later retry.
func (s *EnvelopeService) Send(ctx context.Context, userID, envID uint) (models.Envelope, error) {
	var env models.Envelope
	var recs []models.Recipient
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.ownedEnvelope(tx, userID, envID)
		if err != nil {
			return err
		}
		if !e.IsDraft() {
			return signing.NewError(signing.KindInvalidState, "this document has already been sent")
		}
		if err := tx.Where("envelope_id = ?", e.ID).Order("id").Find(&recs).Error; err != nil {
			return fmt.Errorf("load recipients: %w", err)
		}
		if len(signing.GatingRecipients(recs)) == 0 {
			return signing.NewValidation("no_signers", "at least one signer or approver is required")
		}
		res := tx.Model(&models.Envelope{}).
			Where("id = ? AND status = ?", e.ID, models.EnvelopeStatusDraft).
			Update("status", models.EnvelopeStatusPending)
		if res.Error != nil {
			return fmt.Errorf("send envelope: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return signing.NewError(signing.KindConflict, "this document was already sent")
		}
		e.Status = models.EnvelopeStatusPending
		env = *e
		return nil
	})
	if err != nil {
		return models.Envelope{}, err
	}
	for _, rec := range recs {
		if err := s.Notifier.EnvelopeSent(ctx, env, rec); err != nil {
			s.Log.Error().Err(err).Uint("envelope", env.ID).Str("email", rec.Email).Msg("send notification failed")
			continue
		}
		res := s.DB.WithContext(ctx).Model(&models.Recipient{}).
			Where("id = ? AND send_status = ?", rec.ID, models.SendStatusNotSent).
			Update("send_status", models.SendStatusSent)
		if res.Error != nil {
			s.Log.Error().Err(res.Error).Uint("recipient", rec.ID).Msg("send status update failed")
		}
	}
	return env, nil
}

// CopyLink marks a recipient's signing link as hand-delivered and returns the
// token. link_copied is terminal on the send axis.
func (s *EnvelopeService) CopyLink(ctx context.Context, userID, envID, recipientID uint) (string, error) {
	var token string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		env, err := s.ownedEnvelope(tx, userID, envID)
		if err != nil {
			return err
		}
		var rec models.Recipient
		if err := tx.Where("envelope_id = ?", env.ID).First(&rec, recipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return signing.NewError(signing.KindNotFound, "recipient not found")
			}
			return fmt.Errorf("load recipient: %w", err)
		}
		if rec.SendStatus != models.SendStatusLinkCopied {
			if err := tx.Model(&rec).Update("send_status", models.SendStatusLinkCopied).Error; err != nil {
				return fmt.Errorf("mark link copied: %w", err)
			}
		}
		token = rec.Token
		return nil
	})
	return token, err
}

// Get loads one owned envelope with recipients and fields.
func (s *EnvelopeService) Get(ctx context.Context, userID, envID uint) (models.Envelope, error) {
	var env models.Envelope
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Recipients").
		Preload("Fields").
		Preload("Fields.Value").
		First(&env, envID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Envelope{}, signing.NewError(signing.KindNotFound, "document not found")
		}
		return models.Envelope{}, fmt.Errorf("load envelope: %w", err)
	}
	return env, nil
}

// List returns the owner's envelopes, newest first.
func (s *EnvelopeService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Envelope, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	var total int64
	if err := q.Model(&models.Envelope{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count envelopes: %w", err)
	}
	var envs []models.Envelope
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&envs).Error; err != nil {
		return nil, 0, fmt.Errorf("list envelopes: %w", err)
	}
	return envs, total, nil
}
