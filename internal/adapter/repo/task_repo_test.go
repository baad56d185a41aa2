package repo

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/sqlinline"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan arity mismatch")
	}
	for i, v := range r.values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type stubExecutor struct {
	row      stubRow
	tag      pgconn.CommandTag
	execErr  error
	query    string
	args     []any
	execArgs []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.query = query
	s.execArgs = args
	return s.tag, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.query = query
	s.args = args
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func taskRowValues(status string, completedAt *time.Time) []any {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []any{
		"5f1c7a52-2d0e-4a51-9f8a-1b6d3c2e4f70",
		"abc123",
		"user-1",
		"text-to-3d",
		"preview",
		(*string)(nil),
		strPtr("a red chair"),
		(*string)(nil),
		strPtr("realistic"),
		strPtr("latest"),
		false,
		(*string)(nil),
		status,
		42,
		(*string)(nil),
		(*string)(nil),
		(*string)(nil),
		20,
		created,
		created,
		completedAt,
	}
}

func TestCreatePassesColumnsInOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: stubRow{values: []any{now, now}}}
	repo := NewTaskRepository(exec)

	task := &domain.GenerationTask{
		ID:          "5f1c7a52-2d0e-4a51-9f8a-1b6d3c2e4f70",
		TaskID:      "abc123",
		OwnerID:     "user-1",
		TaskType:    domain.TaskTypeTextTo3D,
		Mode:        domain.TaskModePreview,
		Prompt:      strPtr("a red chair"),
		Status:      domain.TaskStatusPending,
		CreditsUsed: 20,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if exec.query != sqlinline.QInsertGenerationTask {
		t.Fatalf("unexpected query: %s", exec.query)
	}
	if len(exec.args) != 15 {
		t.Fatalf("args len = %d, want 15", len(exec.args))
	}
	if exec.args[1] != "abc123" || exec.args[3] != "text-to-3d" || exec.args[12] != "PENDING" || exec.args[14] != 20 {
		t.Fatalf("unexpected args: %#v", exec.args)
	}
	if !task.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt not populated: %v", task.CreatedAt)
	}
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	exec := &stubExecutor{row: stubRow{err: &pgconn.PgError{Code: "23505"}}}
	repo := NewTaskRepository(exec)
	err := repo.Create(context.Background(), &domain.GenerationTask{TaskID: "dup"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetByTaskIDScansRecord(t *testing.T) {
	exec := &stubExecutor{row: stubRow{values: taskRowValues("IN_PROGRESS", nil)}}
	repo := NewTaskRepository(exec)

	task, err := repo.GetByTaskID(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetByTaskID error: %v", err)
	}
	if exec.query != sqlinline.QSelectGenerationTaskByTaskID || exec.args[0] != "abc123" {
		t.Fatalf("unexpected query/args: %s %#v", exec.query, exec.args)
	}
	if task.Status != domain.TaskStatusInProgress || task.Progress != 42 {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.TaskType != domain.TaskTypeTextTo3D || task.Mode != domain.TaskModePreview {
		t.Fatalf("unexpected enums: %s %s", task.TaskType, task.Mode)
	}
	if domain.StringValue(task.Prompt) != "a red chair" || task.CompletedAt != nil {
		t.Fatalf("unexpected optional fields: %+v", task)
	}
}

func TestGetByTaskIDNotFound(t *testing.T) {
	exec := &stubExecutor{row: stubRow{err: pgx.ErrNoRows}}
	repo := NewTaskRepository(exec)
	if _, err := repo.GetByTaskID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyUpdateReportsRowsAffected(t *testing.T) {
	completed := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewTaskRepository(exec)

	ok, err := repo.ApplyUpdate(context.Background(), "abc123", domain.TaskUpdate{
		Status:      domain.TaskStatusSucceeded,
		Progress:    intPtr(100),
		ModelURL:    strPtr("https://cdn/x.glb"),
		CompletedAt: &completed,
	})
	if err != nil {
		t.Fatalf("ApplyUpdate error: %v", err)
	}
	if !ok {
		t.Fatalf("expected update to be applied")
	}
	if !strings.Contains(exec.query, "update generation_tasks") {
		t.Fatalf("unexpected query: %s", exec.query)
	}
	if progress, ok := exec.execArgs[2].(*int); !ok || progress == nil || *progress != 100 {
		t.Fatalf("unexpected progress arg: %#v", exec.execArgs[2])
	}
	if exec.execArgs[0] != "abc123" || exec.execArgs[1] != "SUCCEEDED" {
		t.Fatalf("unexpected args: %#v", exec.execArgs)
	}

	exec.tag = pgconn.NewCommandTag("UPDATE 0")
	ok, err = repo.ApplyUpdate(context.Background(), "abc123", domain.TaskUpdate{Status: domain.TaskStatusPending})
	if err != nil {
		t.Fatalf("ApplyUpdate error: %v", err)
	}
	if ok {
		t.Fatalf("expected guarded update to report no change")
	}
}
