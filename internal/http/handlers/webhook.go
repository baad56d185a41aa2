package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Sketles/Takopi-sub003/internal/domain"
)

// maxWebhookRead bounds how much of a delivery is read for signature verification.
// Anything beyond it is dropped, so an oversized body can never verify against a
// real signature. The decode limit itself is enforced by the reconciler.
const maxWebhookRead = 8 << 20

// GenerationWebhook handles POST /v1/webhooks/generation. Every delivery that passes
// signature verification is acknowledged with 200 so the provider does not retry.
func (a *App) GenerationWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookRead+1))
	if err != nil {
		a.log(r).Warn().Err(err).Int("bytes", len(raw)).Msg("webhook: body read incomplete")
	}

	out, err := a.Webhooks.Reconcile(r.Context(), raw, r.Header.Get(a.SignatureHeader))
	if errors.Is(err, domain.ErrUnauthorized) {
		a.error(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	a.json(w, http.StatusOK, out)
}
