package domain

import "context"

// TaskRepository persists generation tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *GenerationTask) error
	GetByID(ctx context.Context, id string) (*GenerationTask, error)
	GetByTaskID(ctx context.Context, taskID string) (*GenerationTask, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]GenerationTask, error)
	// ApplyUpdate writes update in one statement keyed by taskID. It reports false when
	// the stored record is terminal or further along than update.Status.
	ApplyUpdate(ctx context.Context, taskID string, update TaskUpdate) (bool, error)
}
