package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/infra"
	"github.com/Sketles/Takopi-sub003/internal/sqlinline"
)

// TaskRepositoryPG implements domain.TaskRepository on PostgreSQL.
type TaskRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTaskRepository creates a task repository over the given executor.
func NewTaskRepository(sql infra.SQLExecutor) *TaskRepositoryPG {
	return &TaskRepositoryPG{sql: sql}
}

// Create inserts a new task and fills in the database timestamps.
func (r *TaskRepositoryPG) Create(ctx context.Context, task *domain.GenerationTask) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationTask,
		task.ID,
		task.TaskID,
		task.OwnerID,
		string(task.TaskType),
		string(task.Mode),
		task.PreviewTaskID,
		task.Prompt,
		task.ImageURL,
		task.ArtStyle,
		task.AIModel,
		task.EnablePBR,
		task.TexturePrompt,
		string(task.Status),
		task.Progress,
		task.CreditsUsed,
	)
	if err := row.Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		if infra.IsUniqueViolation(err) {
			return fmt.Errorf("task %s already recorded: %w", task.TaskID, domain.ErrConflict)
		}
		return fmt.Errorf("insert generation task: %w", err)
	}
	return nil
}

// GetByID fetches a task by its local identifier.
func (r *TaskRepositoryPG) GetByID(ctx context.Context, id string) (*domain.GenerationTask, error) {
	return r.getOne(ctx, sqlinline.QSelectGenerationTaskByID, id)
}

// GetByTaskID fetches a task by the provider-assigned identifier.
func (r *TaskRepositoryPG) GetByTaskID(ctx context.Context, taskID string) (*domain.GenerationTask, error) {
	return r.getOne(ctx, sqlinline.QSelectGenerationTaskByTaskID, taskID)
}

func (r *TaskRepositoryPG) getOne(ctx context.Context, query, key string) (*domain.GenerationTask, error) {
	task, err := scanTask(r.sql.QueryRow(ctx, query, key))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByOwner returns the owner's newest tasks first.
func (r *TaskRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.GenerationTask, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationTasksByOwner, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.GenerationTask, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ApplyUpdate writes a reconciled callback in a single guarded statement.
func (r *TaskRepositoryPG) ApplyUpdate(ctx context.Context, taskID string, update domain.TaskUpdate) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QApplyGenerationTaskUpdate,
		taskID,
		string(update.Status),
		update.Progress,
		update.ModelURL,
		update.ThumbnailURL,
		update.ErrorMessage,
		update.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update generation task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanTask(row pgx.Row) (*domain.GenerationTask, error) {
	var (
		task                   domain.GenerationTask
		taskType, mode, status string
	)
	if err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.OwnerID,
		&taskType,
		&mode,
		&task.PreviewTaskID,
		&task.Prompt,
		&task.ImageURL,
		&task.ArtStyle,
		&task.AIModel,
		&task.EnablePBR,
		&task.TexturePrompt,
		&status,
		&task.Progress,
		&task.ModelURL,
		&task.ThumbnailURL,
		&task.ErrorMessage,
		&task.CreditsUsed,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	); err != nil {
		return nil, err
	}
	task.TaskType = domain.TaskType(taskType)
	task.Mode = domain.TaskMode(mode)
	task.Status = domain.TaskStatus(status)
	return &task, nil
}

var _ domain.TaskRepository = (*TaskRepositoryPG)(nil)
