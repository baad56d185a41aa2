package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/providers/meshy"
)

const (
	defaultArtStyle = "realistic"
	defaultAIModel  = "latest"

	creditsPreviewLatest = 20
	creditsPreviewLegacy = 5
	creditsRefine        = 10
	creditsImage         = 20
	creditsImagePBR      = 30

	DefaultListLimit = 20
	MaxListLimit     = 50
)

// TaskProvider creates jobs on the remote generation provider.
type TaskProvider interface {
	CreatePreview(ctx context.Context, req meshy.PreviewRequest) (string, error)
	CreateRefine(ctx context.Context, req meshy.RefineRequest) (string, error)
	CreateFromImage(ctx context.Context, req meshy.ImageRequest) (string, error)
}

// SubmitRequest is a caller's generation request.
type SubmitRequest struct {
	Type          domain.TaskType
	Prompt        string
	ImageURL      string
	ArtStyle      string
	AIModel       string
	EnablePBR     *bool
	TexturePrompt string
	PreviewTaskID string
}

// SubmitResult identifies the task created by Submit.
type SubmitResult struct {
	ID     string            `json:"id"`
	TaskID string            `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRefinePreviewCheck makes refine submissions require a finished preview owned by
// the caller. Without it the provider decides whether a preview is refinable.
func WithRefinePreviewCheck(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.requirePreview = enabled }
}

// Dispatcher validates generation requests, submits them to the provider and records
// a PENDING task. It does not wait for completion.
type Dispatcher struct {
	provider       TaskProvider
	repo           domain.TaskRepository
	logger         zerolog.Logger
	requirePreview bool
	newID          func() string
}

func NewDispatcher(provider TaskProvider, repo domain.TaskRepository, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		provider: provider,
		repo:     repo,
		logger:   logger,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit validates req, creates the provider job and stores the local record.
func (d *Dispatcher) Submit(ctx context.Context, ownerID string, req SubmitRequest) (*SubmitResult, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	task, create, err := d.plan(req)
	if err != nil {
		return nil, err
	}
	if task.TaskType == domain.TaskTypeTextTo3DRefine && d.requirePreview {
		if err := d.checkPreview(ctx, ownerID, domain.StringValue(task.PreviewTaskID)); err != nil {
			return nil, err
		}
	}

	taskID, err := create(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrProviderRejection) {
			return nil, err
		}
		return nil, fmt.Errorf("submit %s: %w", task.TaskType, err)
	}

	task.ID = d.newID()
	task.TaskID = taskID
	task.OwnerID = ownerID
	task.Status = domain.TaskStatusPending
	task.Progress = 0
	if err := d.repo.Create(ctx, task); err != nil {
		// The provider job exists but nothing tracks it locally; callbacks for it will
		// be logged as unknown.
		d.logger.Error().Err(err).Str("task_id", taskID).Str("owner_id", ownerID).Msg("generation: failed to record submitted task")
		return nil, fmt.Errorf("record task: %w", err)
	}

	d.logger.Info().
		Str("id", task.ID).
		Str("task_id", taskID).
		Str("task_type", string(task.TaskType)).
		Int("credits", task.CreditsUsed).
		Msg("generation: task submitted")

	return &SubmitResult{ID: task.ID, TaskID: task.TaskID, Status: task.Status}, nil
}

type createFunc func(ctx context.Context) (string, error)

// plan validates req and returns the task to record plus the provider call to make.
func (d *Dispatcher) plan(req SubmitRequest) (*domain.GenerationTask, createFunc, error) {
	prompt := normalizeText(req.Prompt)
	texturePrompt := normalizeText(req.TexturePrompt)
	imageURL := strings.TrimSpace(req.ImageURL)
	previewTaskID := strings.TrimSpace(req.PreviewTaskID)
	aiModel := strings.TrimSpace(req.AIModel)
	artStyle := strings.TrimSpace(req.ArtStyle)

	switch req.Type {
	case domain.TaskTypeTextTo3D:
		if prompt == "" {
			return nil, nil, domain.InvalidRequestf("prompt is required for %s", req.Type)
		}
		if artStyle == "" {
			artStyle = defaultArtStyle
		}
		if aiModel == "" {
			aiModel = defaultAIModel
		}
		credits := creditsPreviewLegacy
		if aiModel == defaultAIModel {
			credits = creditsPreviewLatest
		}
		task := &domain.GenerationTask{
			TaskType:    req.Type,
			Mode:        domain.TaskModePreview,
			Prompt:      domain.StringPtr(prompt),
			ArtStyle:    domain.StringPtr(artStyle),
			AIModel:     domain.StringPtr(aiModel),
			CreditsUsed: credits,
		}
		return task, func(ctx context.Context) (string, error) {
			return d.provider.CreatePreview(ctx, meshy.PreviewRequest{Prompt: prompt, ArtStyle: artStyle, AIModel: aiModel})
		}, nil

	case domain.TaskTypeTextTo3DRefine:
		if previewTaskID == "" {
			return nil, nil, domain.InvalidRequestf("previewTaskId is required for %s", req.Type)
		}
		enablePBR := boolOr(req.EnablePBR, true)
		task := &domain.GenerationTask{
			TaskType:      req.Type,
			Mode:          domain.TaskModeRefine,
			PreviewTaskID: domain.StringPtr(previewTaskID),
			EnablePBR:     enablePBR,
			TexturePrompt: domain.StringPtr(texturePrompt),
			CreditsUsed:   creditsRefine,
		}
		return task, func(ctx context.Context) (string, error) {
			return d.provider.CreateRefine(ctx, meshy.RefineRequest{PreviewTaskID: previewTaskID, EnablePBR: enablePBR, TexturePrompt: texturePrompt})
		}, nil

	case domain.TaskTypeImageTo3D:
		if imageURL == "" {
			return nil, nil, domain.InvalidRequestf("imageUrl is required for %s", req.Type)
		}
		enablePBR := boolOr(req.EnablePBR, false)
		credits := creditsImage
		if enablePBR {
			credits = creditsImagePBR
		}
		task := &domain.GenerationTask{
			TaskType:      req.Type,
			Mode:          domain.TaskModePreview,
			ImageURL:      domain.StringPtr(imageURL),
			AIModel:       domain.StringPtr(aiModel),
			EnablePBR:     enablePBR,
			TexturePrompt: domain.StringPtr(texturePrompt),
			CreditsUsed:   credits,
		}
		return task, func(ctx context.Context) (string, error) {
			return d.provider.CreateFromImage(ctx, meshy.ImageRequest{ImageURL: imageURL, AIModel: aiModel, EnablePBR: enablePBR, TexturePrompt: texturePrompt})
		}, nil

	default:
		return nil, nil, domain.InvalidRequestf("unsupported task type %q", req.Type)
	}
}

func (d *Dispatcher) checkPreview(ctx context.Context, ownerID, previewTaskID string) error {
	preview, err := d.repo.GetByTaskID(ctx, previewTaskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.InvalidRequestf("preview task %s not found", previewTaskID)
		}
		return fmt.Errorf("load preview task: %w", err)
	}
	if preview.OwnerID != ownerID {
		return domain.InvalidRequestf("preview task %s not found", previewTaskID)
	}
	if preview.Mode != domain.TaskModePreview || preview.Status != domain.TaskStatusSucceeded {
		return domain.InvalidRequestf("preview task %s is not a finished preview", previewTaskID)
	}
	return nil
}

// ListByOwner returns the owner's tasks newest first. limit defaults to
// DefaultListLimit and is capped at MaxListLimit.
func (d *Dispatcher) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.GenerationTask, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return d.repo.ListByOwner(ctx, ownerID, limit)
}

// Get returns a single task owned by ownerID. Tasks of other owners are reported as
// not found.
func (d *Dispatcher) Get(ctx context.Context, ownerID, id string) (*domain.GenerationTask, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	task, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
