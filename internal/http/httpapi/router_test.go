package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/generation"
	"github.com/Sketles/Takopi-sub003/internal/http/handlers"
	"github.com/Sketles/Takopi-sub003/internal/middleware"
	"github.com/Sketles/Takopi-sub003/internal/relay"
)

type stubTasks struct{ owner string }

func (s *stubTasks) Submit(_ context.Context, owner string, _ generation.SubmitRequest) (*generation.SubmitResult, error) {
	s.owner = owner
	return &generation.SubmitResult{ID: "id-1", TaskID: "abc", Status: domain.TaskStatusPending}, nil
}

func (s *stubTasks) ListByOwner(_ context.Context, owner string, _ int) ([]domain.GenerationTask, error) {
	s.owner = owner
	return nil, nil
}

func (s *stubTasks) Get(context.Context, string, string) (*domain.GenerationTask, error) {
	return nil, domain.ErrNotFound
}

type stubReconciler struct{}

func (stubReconciler) Reconcile(context.Context, []byte, string) (generation.Outcome, error) {
	return generation.Outcome{Received: true, Processed: true}, nil
}

func newTestRouter(tasks *stubTasks) http.Handler {
	app := &handlers.App{
		Tasks:           tasks,
		Webhooks:        stubReconciler{},
		Assets:          relay.New(relay.Options{AllowedHosts: []string{"assets.meshy.ai"}}),
		Logger:          zerolog.Nop(),
		SignatureHeader: "X-Provider-Signature",
	}
	return NewRouter(app, Options{JWTSecret: "secret", CORSOrigins: []string{"https://app.example"}, RateLimitPerMin: 100, Logger: zerolog.Nop()})
}

func TestRouterRoutes(t *testing.T) {
	tasks := &stubTasks{}
	h := newTestRouter(tasks)
	token, _ := middleware.SignJWT("secret", middleware.TokenClaims{Sub: "user-9"})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/v1/healthz", "", "", http.StatusOK},
		{"submit needs token", http.MethodPost, "/v1/generations", `{}`, "", http.StatusUnauthorized},
		{"submit", http.MethodPost, "/v1/generations", `{"type":"text-to-3d","prompt":"x"}`, token, http.StatusCreated},
		{"list", http.MethodGet, "/v1/generations", "", token, http.StatusOK},
		{"get missing", http.MethodGet, "/v1/generations/22222222-2222-4222-8222-222222222222", "", token, http.StatusNotFound},
		{"webhook without token", http.MethodPost, "/v1/webhooks/generation", `{}`, "", http.StatusOK},
		{"relay forbidden", http.MethodGet, "/v1/assets/relay?url=https://evil.example/x.glb", "", "", http.StatusForbidden},
		{"relay preflight", http.MethodOptions, "/v1/assets/relay", "", "", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, rr.Code, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Fatalf("missing request id header")
			}
		})
	}
	if tasks.owner != "user-9" {
		t.Fatalf("expected token subject to reach the dispatcher, got %q", tasks.owner)
	}
}

func TestRouterRelayCORS(t *testing.T) {
	h := newTestRouter(&stubTasks{})
	req := httptest.NewRequest(http.MethodGet, "/v1/assets/relay?url=https://evil.example/x.glb", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin on relay, got %q", got)
	}
}
