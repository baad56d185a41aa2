package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/generation"
)

const maxSubmitBody = 64 << 10

type submitRequest struct {
	Type          string `json:"type"`
	Prompt        string `json:"prompt"`
	ImageURL      string `json:"imageUrl"`
	ArtStyle      string `json:"artStyle"`
	AIModel       string `json:"aiModel"`
	EnablePBR     *bool  `json:"enablePbr"`
	TexturePrompt string `json:"texturePrompt"`
	PreviewTaskID string `json:"previewTaskId"`
}

type taskResponse struct {
	ID            string            `json:"id"`
	TaskID        string            `json:"taskId"`
	TaskType      domain.TaskType   `json:"taskType"`
	Mode          domain.TaskMode   `json:"mode"`
	PreviewTaskID *string           `json:"previewTaskId"`
	Prompt        *string           `json:"prompt"`
	ImageURL      *string           `json:"imageUrl"`
	ArtStyle      *string           `json:"artStyle"`
	AIModel       *string           `json:"aiModel"`
	EnablePBR     bool              `json:"enablePbr"`
	TexturePrompt *string           `json:"texturePrompt"`
	Status        domain.TaskStatus `json:"status"`
	Progress      int               `json:"progress"`
	ModelURL      *string           `json:"modelUrl"`
	ThumbnailURL  *string           `json:"thumbnailUrl"`
	ErrorMessage  *string           `json:"errorMessage"`
	CreditsUsed   int               `json:"creditsUsed"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	CompletedAt   *time.Time        `json:"completedAt"`
}

func newTaskResponse(t domain.GenerationTask) taskResponse {
	return taskResponse{
		ID:            t.ID,
		TaskID:        t.TaskID,
		TaskType:      t.TaskType,
		Mode:          t.Mode,
		PreviewTaskID: t.PreviewTaskID,
		Prompt:        t.Prompt,
		ImageURL:      t.ImageURL,
		ArtStyle:      t.ArtStyle,
		AIModel:       t.AIModel,
		EnablePBR:     t.EnablePBR,
		TexturePrompt: t.TexturePrompt,
		Status:        t.Status,
		Progress:      t.Progress,
		ModelURL:      t.ModelURL,
		ThumbnailURL:  t.ThumbnailURL,
		ErrorMessage:  t.ErrorMessage,
		CreditsUsed:   t.CreditsUsed,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

// SubmitGeneration handles POST /v1/generations.
func (a *App) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := a.Tasks.Submit(r.Context(), userID, generation.SubmitRequest{
		Type:          domain.TaskType(req.Type),
		Prompt:        req.Prompt,
		ImageURL:      req.ImageURL,
		ArtStyle:      req.ArtStyle,
		AIModel:       req.AIModel,
		EnablePBR:     req.EnablePBR,
		TexturePrompt: req.TexturePrompt,
		PreviewTaskID: req.PreviewTaskID,
	})
	if err != nil {
		a.taskError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res)
}

// ListGenerations handles GET /v1/generations.
func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	tasks, err := a.Tasks.ListByOwner(r.Context(), userID, limit)
	if err != nil {
		a.taskError(w, r, err)
		return
	}
	items := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, newTaskResponse(t))
	}
	a.json(w, http.StatusOK, items)
}

// GetGeneration handles GET /v1/generations/{id}.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	task, err := a.Tasks.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.taskError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newTaskResponse(*task))
}

func (a *App) taskError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "task not found")
	case errors.As(err, &perr):
		code := perr.StatusCode
		if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		a.log(r).Warn().Int("provider_status", perr.StatusCode).Str("message", perr.Message).Msg("generation: provider rejected job")
		msg := perr.Message
		if msg == "" {
			msg = "provider rejected the request"
		}
		a.error(w, code, msg)
	default:
		a.log(r).Error().Err(err).Msg("generation: request failed")
		a.error(w, http.StatusInternalServerError, "internal error")
	}
}
