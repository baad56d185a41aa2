package generation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/providers/meshy"
)

type fakeProvider struct {
	previews []meshy.PreviewRequest
	refines  []meshy.RefineRequest
	images   []meshy.ImageRequest
	taskID   string
	err      error
}

func (f *fakeProvider) CreatePreview(_ context.Context, req meshy.PreviewRequest) (string, error) {
	f.previews = append(f.previews, req)
	return f.taskID, f.err
}

func (f *fakeProvider) CreateRefine(_ context.Context, req meshy.RefineRequest) (string, error) {
	f.refines = append(f.refines, req)
	return f.taskID, f.err
}

func (f *fakeProvider) CreateFromImage(_ context.Context, req meshy.ImageRequest) (string, error) {
	f.images = append(f.images, req)
	return f.taskID, f.err
}

func (f *fakeProvider) calls() int {
	return len(f.previews) + len(f.refines) + len(f.images)
}

// memoryRepo mirrors the guarded update of the SQL repository.
type memoryRepo struct {
	mu        sync.Mutex
	byTaskID  map[string]*domain.GenerationTask
	createErr error
	lookupErr error
	updateErr error
	updates   int
}

func newMemoryRepo(tasks ...*domain.GenerationTask) *memoryRepo {
	r := &memoryRepo{byTaskID: map[string]*domain.GenerationTask{}}
	for _, t := range tasks {
		r.byTaskID[t.TaskID] = t
	}
	return r
}

func (r *memoryRepo) Create(_ context.Context, task *domain.GenerationTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byTaskID[task.TaskID]; ok {
		return domain.ErrConflict
	}
	cp := *task
	r.byTaskID[task.TaskID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byTaskID {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByTaskID(_ context.Context, taskID string) (*domain.GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	t, ok := r.byTaskID[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GenerationTask
	for _, t := range r.byTaskID {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) ApplyUpdate(_ context.Context, taskID string, u domain.TaskUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return false, r.updateErr
	}
	t, ok := r.byTaskID[taskID]
	if !ok || !domain.CanTransition(t.Status, u.Status) {
		return false, nil
	}
	r.updates++
	t.Status = u.Status
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
	if u.ModelURL != nil {
		t.ModelURL = u.ModelURL
	}
	if u.ThumbnailURL != nil {
		t.ThumbnailURL = u.ThumbnailURL
	}
	if u.ErrorMessage != nil {
		t.ErrorMessage = u.ErrorMessage
	}
	if t.CompletedAt == nil && u.CompletedAt != nil {
		t.CompletedAt = u.CompletedAt
	}
	return true, nil
}

func (r *memoryRepo) get(taskID string) domain.GenerationTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byTaskID[taskID]
}

type memoryDeliveryLog struct {
	seen      map[string]bool
	err       error
	forgotten []string
}

func newMemoryDeliveryLog() *memoryDeliveryLog {
	return &memoryDeliveryLog{seen: map[string]bool{}}
}

func (l *memoryDeliveryLog) MarkSeen(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	return true, nil
}

func (l *memoryDeliveryLog) Forget(_ context.Context, key string) error {
	delete(l.seen, key)
	l.forgotten = append(l.forgotten, key)
	return nil
}

var errStore = errors.New("store unavailable")
