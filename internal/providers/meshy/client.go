package meshy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("meshy: api key is required")

const (
	textTo3DPath  = "/openapi/v2/text-to-3d"
	imageTo3DPath = "/openapi/v1/image-to-3d"
)

// Options configures the Meshy client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client creates generation jobs on the Meshy API. It never waits for job completion;
// completion is reported back through webhooks.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// PreviewRequest asks for an untextured mesh from a text prompt.
type PreviewRequest struct {
	Prompt   string
	ArtStyle string
	AIModel  string
}

// RefineRequest asks for a textured pass over a finished preview.
type RefineRequest struct {
	PreviewTaskID string
	EnablePBR     bool
	TexturePrompt string
}

// ImageRequest asks for a textured mesh from a reference image.
type ImageRequest struct {
	ImageURL      string
	AIModel       string
	EnablePBR     bool
	TexturePrompt string
}

type previewPayload struct {
	Mode     string `json:"mode"`
	Prompt   string `json:"prompt"`
	ArtStyle string `json:"art_style,omitempty"`
	AIModel  string `json:"ai_model,omitempty"`
}

type refinePayload struct {
	Mode          string `json:"mode"`
	PreviewTaskID string `json:"preview_task_id"`
	EnablePBR     bool   `json:"enable_pbr"`
	TexturePrompt string `json:"texture_prompt,omitempty"`
}

type imagePayload struct {
	ImageURL      string `json:"image_url"`
	AIModel       string `json:"ai_model,omitempty"`
	EnablePBR     bool   `json:"enable_pbr"`
	ShouldTexture bool   `json:"should_texture"`
	TexturePrompt string `json:"texture_prompt,omitempty"`
}

type createResponse struct {
	Result string `json:"result"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.meshy.ai"
	}
	logger := opts.Logger
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreatePreview submits a text-to-3d preview job and returns the provider task id.
func (c *Client) CreatePreview(ctx context.Context, req PreviewRequest) (string, error) {
	return c.create(ctx, textTo3DPath, previewPayload{
		Mode:     "preview",
		Prompt:   req.Prompt,
		ArtStyle: req.ArtStyle,
		AIModel:  req.AIModel,
	})
}

// CreateRefine submits a refine job for an existing preview task.
func (c *Client) CreateRefine(ctx context.Context, req RefineRequest) (string, error) {
	return c.create(ctx, textTo3DPath, refinePayload{
		Mode:          "refine",
		PreviewTaskID: req.PreviewTaskID,
		EnablePBR:     req.EnablePBR,
		TexturePrompt: req.TexturePrompt,
	})
}

// CreateFromImage submits an image-to-3d job. Texturing is always requested.
func (c *Client) CreateFromImage(ctx context.Context, req ImageRequest) (string, error) {
	return c.create(ctx, imageTo3DPath, imagePayload{
		ImageURL:      req.ImageURL,
		AIModel:       req.AIModel,
		EnablePBR:     req.EnablePBR,
		ShouldTexture: true,
		TexturePrompt: req.TexturePrompt,
	})
}

func (c *Client) create(ctx context.Context, path string, payload any) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("meshy: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("meshy: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("meshy: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("meshy: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		perr := &domain.ProviderError{StatusCode: resp.StatusCode}
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			perr.Message = detail.Message
		} else {
			perr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Str("message", perr.Message).Msg("meshy: job rejected")
		return "", perr
	}

	var decoded createResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("meshy: decode response: %w", err)
	}
	taskID := strings.TrimSpace(decoded.Result)
	if taskID == "" {
		return "", errors.New("meshy: empty task id")
	}
	c.logger.Debug().Str("path", path).Str("task_id", taskID).Msg("meshy: job created")
	return taskID, nil
}
