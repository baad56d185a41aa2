package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/relay"
)

func setRelayHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// RelayAsset handles GET /v1/assets/relay?url=. It is reachable without
// authentication and only restricted by the host allow-list.
func (a *App) RelayAsset(w http.ResponseWriter, r *http.Request) {
	setRelayHeaders(w.Header())

	asset, err := a.Assets.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		var upstream *relay.UpstreamError
		switch {
		case errors.Is(err, domain.ErrForbidden):
			a.error(w, http.StatusForbidden, "host not allowed")
		case errors.Is(err, domain.ErrInvalidRequest):
			a.error(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &upstream):
			code := upstream.StatusCode
			if code < 400 || code > 599 {
				code = http.StatusBadGateway
			}
			a.error(w, code, "upstream request failed")
		default:
			a.log(r).Error().Err(err).Msg("relay: fetch failed")
			a.error(w, http.StatusInternalServerError, "failed to fetch asset")
		}
		return
	}
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	if asset.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, asset.Body); err != nil {
		a.log(r).Warn().Err(err).Msg("relay: stream interrupted")
	}
}

// RelayPreflight answers CORS preflight for the relay.
func (a *App) RelayPreflight(w http.ResponseWriter, _ *http.Request) {
	setRelayHeaders(w.Header())
	w.WriteHeader(http.StatusNoContent)
}
