package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/domain"
)

// Reasons reported in Outcome when a delivery was accepted but not applied.
const (
	ReasonMalformedPayload  = "malformed_payload"
	ReasonUnknownStatus     = "unknown_status"
	ReasonStaleUpdate       = "stale_update"
	ReasonDuplicateDelivery = "duplicate_delivery"
	ReasonInternalError     = "internal_error"
)

// DefaultFailureMessage is stored when a failed task carries no provider message.
const DefaultFailureMessage = "generation failed"

// DefaultMaxPayloadBytes bounds the callback bodies the reconciler will decode.
const DefaultMaxPayloadBytes = 1 << 20

// Outcome describes what happened to an authenticated webhook delivery. Received is
// always true; Processed is true only when the payload was understood and handled
// without internal error.
type Outcome struct {
	Received  bool              `json:"received"`
	Processed bool              `json:"processed"`
	Found     *bool             `json:"found,omitempty"`
	Updated   *bool             `json:"updated,omitempty"`
	Status    domain.TaskStatus `json:"status,omitempty"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// DeliveryLog remembers webhook deliveries so redelivered bodies can be skipped.
type DeliveryLog interface {
	// MarkSeen records key and reports whether it was new.
	MarkSeen(ctx context.Context, key string) (bool, error)
	// Forget removes key so a retried delivery is processed again.
	Forget(ctx context.Context, key string) error
}

// WebhookPayload is the provider callback body.
type WebhookPayload struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Progress  *float64 `json:"progress"`
	ModelURLs *struct {
		GLB string `json:"glb"`
	} `json:"model_urls"`
	ThumbnailURL string `json:"thumbnail_url"`
	TaskError    *struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

// ReconcilerOption customises a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithDeliveryLog enables duplicate suppression. A nil log disables it.
func WithDeliveryLog(log DeliveryLog) ReconcilerOption {
	return func(r *Reconciler) { r.deliveries = log }
}

// WithMaxPayloadBytes changes the largest body that is decoded. Larger authenticated
// bodies are acknowledged as malformed. n <= 0 removes the limit.
func WithMaxPayloadBytes(n int) ReconcilerOption {
	return func(r *Reconciler) { r.maxPayload = n }
}

// WithClock overrides the time source used for completedAt.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler applies provider callbacks to local task records.
type Reconciler struct {
	repo       domain.TaskRepository
	verifier   Verifier
	deliveries DeliveryLog
	logger     zerolog.Logger
	now        func() time.Time
	maxPayload int
}

func NewReconciler(repo domain.TaskRepository, verifier Verifier, logger zerolog.Logger, opts ...ReconcilerOption) *Reconciler {
	if verifier == nil {
		verifier = AllowAllVerifier{}
	}
	r := &Reconciler{
		repo:       repo,
		verifier:   verifier,
		logger:     logger,
		now:        time.Now,
		maxPayload: DefaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile authenticates and applies one webhook delivery. The only error returned is
// domain.ErrUnauthorized; every other problem is reported through the Outcome so the
// caller can acknowledge the delivery. Size limits apply only after authentication.
func (r *Reconciler) Reconcile(ctx context.Context, raw []byte, signature string) (Outcome, error) {
	if !r.verifier.Verify(raw, signature) {
		r.logger.Warn().Int("bytes", len(raw)).Msg("webhook: signature rejected")
		return Outcome{}, domain.ErrUnauthorized
	}
	out := Outcome{Received: true}

	if r.maxPayload > 0 && len(raw) > r.maxPayload {
		r.logger.Warn().Int("bytes", len(raw)).Int("limit", r.maxPayload).Msg("webhook: payload too large")
		out.Reason = ReasonMalformedPayload
		return out, nil
	}

	key := deliveryKey(raw)
	if r.deliveries != nil {
		fresh, err := r.deliveries.MarkSeen(ctx, key)
		if err != nil {
			r.logger.Warn().Err(err).Msg("webhook: delivery log unavailable")
		} else if !fresh {
			r.logger.Debug().Str("delivery", key).Msg("webhook: duplicate delivery skipped")
			out.Processed = true
			out.Duplicate = true
			out.Reason = ReasonDuplicateDelivery
			return out, nil
		}
	}

	var payload WebhookPayload
	if err := sonic.Unmarshal(raw, &payload); err != nil || strings.TrimSpace(payload.ID) == "" {
		r.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("webhook: malformed payload")
		out.Reason = ReasonMalformedPayload
		return out, nil
	}
	taskID := strings.TrimSpace(payload.ID)
	log := r.logger.With().Str("task_id", taskID).Str("provider_status", payload.Status).Logger()

	task, err := r.repo.GetByTaskID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info().Msg("webhook: task not tracked locally")
			out.Processed = true
			out.Found = boolPtr(false)
			return out, nil
		}
		log.Error().Err(err).Msg("webhook: lookup failed")
		r.forget(ctx, key)
		out.Reason = ReasonInternalError
		return out, nil
	}
	out.Found = boolPtr(true)

	status, known := MapProviderStatus(payload.Status)
	if !known {
		log.Warn().Msg("webhook: unknown provider status, treating as PENDING")
		out.Reason = ReasonUnknownStatus
	}

	if !domain.CanTransition(task.Status, status) {
		log.Info().Str("current", string(task.Status)).Str("incoming", string(status)).Msg("webhook: stale update ignored")
		out.Processed = true
		out.Updated = boolPtr(false)
		out.Status = task.Status
		out.Reason = ReasonStaleUpdate
		return out, nil
	}

	update := BuildUpdate(status, payload, r.now())
	applied, err := r.repo.ApplyUpdate(ctx, taskID, update)
	if err != nil {
		log.Error().Err(err).Msg("webhook: update failed")
		r.forget(ctx, key)
		out.Reason = ReasonInternalError
		return out, nil
	}
	out.Processed = true
	out.Updated = boolPtr(applied)
	if !applied {
		// Lost a race with a concurrent delivery that moved the record further.
		log.Info().Str("incoming", string(status)).Msg("webhook: update rejected by guard")
		out.Reason = ReasonStaleUpdate
		return out, nil
	}
	out.Status = status
	ev := log.Info().Str("status", string(status))
	if update.Progress != nil {
		ev = ev.Int("progress", *update.Progress)
	}
	ev.Msg("webhook: task updated")
	return out, nil
}

func (r *Reconciler) forget(ctx context.Context, key string) {
	if r.deliveries == nil {
		return
	}
	if err := r.deliveries.Forget(ctx, key); err != nil {
		r.logger.Warn().Err(err).Str("delivery", key).Msg("webhook: failed to release delivery mark")
	}
}

// BuildUpdate derives the record update for a mapped status. A callback without a
// usable progress value leaves the stored progress untouched.
func BuildUpdate(status domain.TaskStatus, p WebhookPayload, now time.Time) domain.TaskUpdate {
	u := domain.TaskUpdate{
		Status:   status,
		Progress: clampProgress(p.Progress),
	}
	switch status {
	case domain.TaskStatusSucceeded:
		u.Progress = intPtr(100)
		if p.ModelURLs != nil {
			u.ModelURL = domain.StringPtr(strings.TrimSpace(p.ModelURLs.GLB))
		}
		u.ThumbnailURL = domain.StringPtr(strings.TrimSpace(p.ThumbnailURL))
		u.CompletedAt = &now
	case domain.TaskStatusFailed:
		msg := ""
		if p.TaskError != nil {
			msg = strings.TrimSpace(p.TaskError.Message)
		}
		if msg == "" {
			msg = DefaultFailureMessage
		}
		u.ErrorMessage = &msg
		u.CompletedAt = &now
	case domain.TaskStatusCanceled:
		u.CompletedAt = &now
	}
	return u
}

func clampProgress(p *float64) *int {
	if p == nil || math.IsNaN(*p) {
		return nil
	}
	v := math.Round(*p)
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return intPtr(int(v))
}

func deliveryKey(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
