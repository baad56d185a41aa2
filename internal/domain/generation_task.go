package domain

import "time"

// TaskType enumerates the supported generation workflows.
type TaskType string

const (
	TaskTypeTextTo3D       TaskType = "text-to-3d"
	TaskTypeTextTo3DRefine TaskType = "text-to-3d-refine"
	TaskTypeImageTo3D      TaskType = "image-to-3d"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTextTo3D, TaskTypeTextTo3DRefine, TaskTypeImageTo3D:
		return true
	}
	return false
}

// TaskMode is the phase of the two-phase preview/refine workflow.
type TaskMode string

const (
	TaskModePreview TaskMode = "preview"
	TaskModeRefine  TaskMode = "refine"
)

// TaskStatus enumerates the local task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusSucceeded  TaskStatus = "SUCCEEDED"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusCanceled   TaskStatus = "CANCELED"
)

// Terminal reports whether no further transition is expected from s.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCanceled:
		return true
	}
	return false
}

// Rank orders statuses along PENDING -> IN_PROGRESS -> terminal.
func (s TaskStatus) Rank() int {
	switch s {
	case TaskStatusInProgress:
		return 1
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCanceled:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether a record in status from may be moved to status to.
// Terminal records are frozen and a status never moves backwards.
func CanTransition(from, to TaskStatus) bool {
	if from.Terminal() {
		return false
	}
	return to.Rank() >= from.Rank()
}

// GenerationTask is one locally tracked submission to the remote generation provider.
type GenerationTask struct {
	ID            string
	TaskID        string
	OwnerID       string
	TaskType      TaskType
	Mode          TaskMode
	PreviewTaskID *string
	Prompt        *string
	ImageURL      *string
	ArtStyle      *string
	AIModel       *string
	EnablePBR     bool
	TexturePrompt *string
	Status        TaskStatus
	Progress      int
	ModelURL      *string
	ThumbnailURL  *string
	ErrorMessage  *string
	CreditsUsed   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// TaskUpdate is the set of fields the reconciler writes for a single callback.
// Nil pointers leave the stored column untouched.
type TaskUpdate struct {
	Status       TaskStatus
	Progress     *int
	ModelURL     *string
	ThumbnailURL *string
	ErrorMessage *string
	CompletedAt  *time.Time
}

// StringPtr returns nil for blank strings and a pointer otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
