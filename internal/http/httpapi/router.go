package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/http/handlers"
	"github.com/Sketles/Takopi-sub003/internal/middleware"
)

// Options carries the router's middleware settings.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID(opts.Logger),
		chimw.RealIP,
		chimw.Recoverer,
		middleware.AccessLog,
	)

	r.Get("/v1/healthz", app.Health)

	// Provider callbacks are authenticated by signature, not by user token.
	r.Post("/v1/webhooks/generation", app.GenerationWebhook)

	// The relay carries its own permissive CORS headers.
	r.Route("/v1/assets/relay", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Get("/", app.RelayAsset)
		r.Options("/", app.RelayPreflight)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(opts.CORSOrigins))
		r.Options("/v1/generations", preflight)
		r.Options("/v1/generations/{id}", preflight)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/v1/generations", app.SubmitGeneration)
			r.Get("/v1/generations", app.ListGenerations)
			r.Get("/v1/generations/{id}", app.GetGeneration)
		})
	})

	return r
}

// preflight is reached only after CORS has written its headers.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
