package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/generation"
	"github.com/Sketles/Takopi-sub003/internal/middleware"
	"github.com/Sketles/Takopi-sub003/internal/relay"
)

// TaskService is the dispatcher surface used by the task handlers.
type TaskService interface {
	Submit(ctx context.Context, ownerID string, req generation.SubmitRequest) (*generation.SubmitResult, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.GenerationTask, error)
	Get(ctx context.Context, ownerID, id string) (*domain.GenerationTask, error)
}

// WebhookReconciler applies provider callbacks. The only error it returns is
// domain.ErrUnauthorized; every other result travels in the Outcome.
type WebhookReconciler interface {
	Reconcile(ctx context.Context, raw []byte, signature string) (generation.Outcome, error)
}

// AssetFetcher retrieves allow-listed assets.
type AssetFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*relay.Asset, error)
}

// Pinger reports store reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Tasks           TaskService
	Webhooks        WebhookReconciler
	Assets          AssetFetcher
	DB              Pinger
	Logger          zerolog.Logger
	SignatureHeader string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// log prefers the request-scoped logger installed by middleware.RequestID.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
