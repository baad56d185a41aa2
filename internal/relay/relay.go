// Package relay proxies generated assets from allow-listed hosts so browsers can load
// them without cross-origin restrictions.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/domain"
)

const (
	DefaultUserAgent   = "Mozilla/5.0 (compatible; AssetRelay/1.0)"
	DefaultContentType = "application/octet-stream"
	defaultTimeout     = 60 * time.Second
)

// ErrForbidden is returned for URLs outside the allow-list. No request is made for them.
var ErrForbidden = fmt.Errorf("relay: host not allowed: %w", domain.ErrForbidden)

// UpstreamError reports a non-2xx response from the asset host.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("relay: upstream responded %d", e.StatusCode)
}

// Options configures a Relay.
type Options struct {
	AllowedHosts []string
	HTTPClient   *http.Client
	Timeout      time.Duration
	Logger       zerolog.Logger
	UserAgent    string
}

// Relay fetches assets from a fixed set of hosts. It does not check who is asking.
type Relay struct {
	allowed   map[string]struct{}
	client    *http.Client
	logger    zerolog.Logger
	userAgent string
}

// Asset is an upstream response body ready to be streamed. Callers must close Body.
type Asset struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

func New(opts Options) *Relay {
	r := &Relay{
		allowed:   make(map[string]struct{}, len(opts.AllowedHosts)),
		logger:    opts.Logger,
		userAgent: opts.UserAgent,
	}
	for _, h := range opts.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.allowed[h] = struct{}{}
		}
	}
	if r.userAgent == "" {
		r.userAgent = DefaultUserAgent
	}

	var client http.Client
	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
	}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	// Redirects must stay on allowed hosts too.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("relay: too many redirects")
		}
		if !r.Allowed(req.URL) {
			return ErrForbidden
		}
		return nil
	}
	r.client = &client
	return r
}

// Allowed reports whether u may be fetched.
func (r *Relay) Allowed(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	_, ok := r.allowed[strings.ToLower(u.Hostname())]
	return ok
}

// ParseTarget decodes raw as sent in the url query parameter and checks it against the
// allow-list.
func (r *Relay) ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.InvalidRequestf("url is required")
	}
	if !strings.Contains(raw, "://") {
		if decoded, err := url.QueryUnescape(raw); err == nil {
			raw = decoded
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, domain.InvalidRequestf("invalid url")
	}
	if !r.Allowed(u) {
		return nil, ErrForbidden
	}
	return u, nil
}

// Fetch retrieves raw from its allow-listed host.
func (r *Relay) Fetch(ctx context.Context, raw string) (*Asset, error) {
	target, err := r.ParseTarget(raw)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			r.logger.Warn().Str("url", raw).Msg("relay: blocked host")
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("relay: build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			r.logger.Warn().Str("url", target.String()).Msg("relay: redirect to blocked host")
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("relay: fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		r.logger.Warn().Int("status", resp.StatusCode).Str("url", target.String()).Msg("relay: upstream error")
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Asset{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}
