package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/internal/signing"
)

type stubNotifier struct {
	sent     int
	failSend bool
}

func (n *stubNotifier) EnvelopeSent(context.Context, models.Envelope, models.Recipient) error {
	if n.failSend {
		return errors.New("smtp down")
	}
	n.sent++
	return nil
}

func (n *stubNotifier) EnvelopeCompleted(context.Context, models.Envelope) error { return nil }

func (n *stubNotifier) EnvelopeRejected(context.Context, models.Envelope, models.Recipient, string) error {
	return nil
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Envelope{}, &models.Recipient{}, &models.Field{}, &models.FieldValue{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func intp(n int) *int { return &n }

func TestDraftAssemblyAndSend(t *testing.T) {
	db := setupServiceDB(t)
	notifier := &stubNotifier{}
	svc := NewEnvelopeService(db, notifier, zerolog.Nop())
	ctx := context.Background()

	env, err := svc.CreateDraft(ctx, 1, "NDA", models.OrderSequential)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if env.Status != models.EnvelopeStatusDraft {
		t.Fatalf("expected draft, got %s", env.Status)
	}

	signer, err := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "alice@example.com", "Alice", intp(1))
	if err != nil {
		t.Fatalf("add signer: %v", err)
	}
	if signer.Token == "" {
		t.Fatal("expected a signing token to be issued")
	}
	if _, err := svc.AddRecipient(ctx, 1, env.ID, models.RoleCC, "watcher@example.com", "Watcher", nil); err != nil {
		t.Fatalf("add cc: %v", err)
	}

	if _, err := svc.AddField(ctx, 1, env.ID, models.Field{RecipientID: signer.ID, Type: models.FieldSignature}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	sent, err := svc.Send(ctx, 1, env.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != models.EnvelopeStatusPending {
		t.Fatalf("expected pending, got %s", sent.Status)
	}
	if notifier.sent != 2 {
		t.Fatalf("expected 2 send notifications, got %d", notifier.sent)
	}
	var rec models.Recipient
	if err := db.First(&rec, signer.ID).Error; err != nil {
		t.Fatalf("reload signer: %v", err)
	}
	if rec.SendStatus != models.SendStatusSent {
		t.Fatalf("expected send status sent, got %s", rec.SendStatus)
	}

	// resend and late mutation are rejected
	if _, err := svc.Send(ctx, 1, env.ID); !signing.IsKind(err, signing.KindInvalidState) {
		t.Fatalf("expected invalid_state on resend, got %v", err)
	}
	if _, err := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "late@example.com", "Late", intp(2)); !signing.IsKind(err, signing.KindInvalidState) {
		t.Fatalf("expected invalid_state on late recipient, got %v", err)
	}
}

func TestSendNotificationFailureKeepsTransition(t *testing.T) {
	db := setupServiceDB(t)
	notifier := &stubNotifier{failSend: true}
	svc := NewEnvelopeService(db, notifier, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)
	signer, _ := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "alice@example.com", "Alice", nil)

	sent, err := svc.Send(ctx, 1, env.ID)
	if err != nil {
		t.Fatalf("send must not fail on notification errors: %v", err)
	}
	if sent.Status != models.EnvelopeStatusPending {
		t.Fatalf("expected pending, got %s", sent.Status)
	}
	var rec models.Recipient
	if err := db.First(&rec, signer.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rec.SendStatus != models.SendStatusNotSent {
		t.Fatalf("failed dispatch must leave send status not_sent, got %s", rec.SendStatus)
	}
}

func TestSendRequiresGatingRecipient(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewEnvelopeService(db, &stubNotifier{}, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)
	if _, err := svc.AddRecipient(ctx, 1, env.ID, models.RoleCC, "watcher@example.com", "W", nil); err != nil {
		t.Fatalf("add cc: %v", err)
	}
	if _, err := svc.Send(ctx, 1, env.ID); !signing.IsKind(err, signing.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddFieldValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewEnvelopeService(db, &stubNotifier{}, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)
	signer, _ := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "alice@example.com", "Alice", nil)
	cc, _ := svc.AddRecipient(ctx, 1, env.ID, models.RoleCC, "watcher@example.com", "W", nil)

	// dropdown misconfiguration is caught at configuration time
	_, err := svc.AddField(ctx, 1, env.ID, models.Field{
		RecipientID: signer.ID,
		Type:        models.FieldDropdown,
		Meta:        models.FieldMeta{ReadOnly: true, Required: true, Options: []models.FieldOption{{Value: "A"}}},
	})
	if !signing.IsKind(err, signing.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// viewers cannot own fields
	_, err = svc.AddField(ctx, 1, env.ID, models.Field{RecipientID: cc.ID, Type: models.FieldText})
	if !signing.IsKind(err, signing.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRecipientValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewEnvelopeService(db, &stubNotifier{}, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)
	if _, err := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "not-an-email", "X", nil); !signing.IsKind(err, signing.KindValidation) {
		t.Fatalf("expected validation error for email, got %v", err)
	}
	if _, err := svc.AddRecipient(ctx, 1, env.ID, models.RecipientRole("ghost"), "a@b.co", "X", nil); !signing.IsKind(err, signing.KindValidation) {
		t.Fatalf("expected validation error for role, got %v", err)
	}
}

func TestOwnershipScoping(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewEnvelopeService(db, &stubNotifier{}, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)

	if _, err := svc.Get(ctx, 2, env.ID); !signing.IsKind(err, signing.KindNotFound) {
		t.Fatalf("foreign envelope must be not_found, got %v", err)
	}
	if _, err := svc.Send(ctx, 2, env.ID); !signing.IsKind(err, signing.KindNotFound) {
		t.Fatalf("foreign send must be not_found, got %v", err)
	}

	envs, total, err := svc.List(ctx, 1, 50, 0)
	if err != nil || total != 1 || len(envs) != 1 {
		t.Fatalf("owner list wrong: %v total=%d n=%d", err, total, len(envs))
	}
	_, total, _ = svc.List(ctx, 2, 50, 0)
	if total != 0 {
		t.Fatalf("foreign list must be empty, got %d", total)
	}
}

func TestCopyLink(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewEnvelopeService(db, &stubNotifier{}, zerolog.Nop())
	ctx := context.Background()

	env, _ := svc.CreateDraft(ctx, 1, "NDA", models.OrderParallel)
	signer, _ := svc.AddRecipient(ctx, 1, env.ID, models.RoleSigner, "alice@example.com", "Alice", nil)

	token, err := svc.CopyLink(ctx, 1, env.ID, signer.ID)
	if err != nil {
		t.Fatalf("copy link: %v", err)
	}
	if token != signer.Token {
		t.Fatalf("expected the issued token back, got %q", token)
	}
	var rec models.Recipient
	if err := db.First(&rec, signer.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rec.SendStatus != models.SendStatusLinkCopied {
		t.Fatalf("expected link_copied, got %s", rec.SendStatus)
	}
}
