package signing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-esign/internal/models"
)

// Notifier dispatches recipient-facing notifications after state transitions.
// Implementations are external collaborators (email, webhooks); a dispatch
// failure never rolls back the transition that triggered it.
type Notifier interface {
	EnvelopeSent(ctx context.Context, env models.Envelope, rec models.Recipient) error
	EnvelopeCompleted(ctx context.Context, env models.Envelope) error
	EnvelopeRejected(ctx context.Context, env models.Envelope, rec models.Recipient, reason string) error
}

// Finalizer is the external finalization pipeline: signature embedding,
// certificate generation, durable artifact storage. It is invoked exactly
// once per completed envelope.
type Finalizer interface {
	Finalize(ctx context.Context, envelopeID uint) error
}

// LogNotifier is the default Notifier: it records each dispatch as a log
// event. Useful in development and as a wiring placeholder in tests.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) EnvelopeSent(_ context.Context, env models.Envelope, rec models.Recipient) error {
	n.Log.Info().Uint("envelope", env.ID).Str("email", rec.Email).Msg("envelope sent to recipient")
	return nil
}

func (n LogNotifier) EnvelopeCompleted(_ context.Context, env models.Envelope) error {
	n.Log.Info().Uint("envelope", env.ID).Msg("envelope completed")
	return nil
}

func (n LogNotifier) EnvelopeRejected(_ context.Context, env models.Envelope, rec models.Recipient, reason string) error {
	n.Log.Info().Uint("envelope", env.ID).Str("email", rec.Email).Str("reason", reason).Msg("envelope rejected")
	return nil
}

// LogFinalizer is the default Finalizer: it only records the hand-off.
type LogFinalizer struct {
	Log zerolog.Logger
}

func (f LogFinalizer) Finalize(_ context.Context, envelopeID uint) error {
	f.Log.Info().Uint("envelope", envelopeID).Msg("finalization pipeline invoked")
	return nil
}
