package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPending, TaskStatusPending, true},
		{TaskStatusPending, TaskStatusInProgress, true},
		{TaskStatusPending, TaskStatusSucceeded, true},
		{TaskStatusPending, TaskStatusFailed, true},
		{TaskStatusPending, TaskStatusCanceled, true},
		{TaskStatusInProgress, TaskStatusInProgress, true},
		{TaskStatusInProgress, TaskStatusSucceeded, true},
		{TaskStatusInProgress, TaskStatusPending, false},
		{TaskStatusSucceeded, TaskStatusFailed, false},
		{TaskStatusSucceeded, TaskStatusSucceeded, false},
		{TaskStatusFailed, TaskStatusInProgress, false},
		{TaskStatusCanceled, TaskStatusSucceeded, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestTaskTypeValid(t *testing.T) {
	for _, tt := range []TaskType{TaskTypeTextTo3D, TaskTypeTextTo3DRefine, TaskTypeImageTo3D} {
		if !tt.Valid() {
			t.Fatalf("%q should be valid", tt)
		}
	}
	if TaskType("text-to-video").Valid() {
		t.Fatalf("unexpected valid task type")
	}
}

func TestProviderErrorMatchesRejection(t *testing.T) {
	err := fmt.Errorf("submit: %w", &ProviderError{StatusCode: 402, Message: "insufficient credits"})
	if !errors.Is(err, ErrProviderRejection) {
		t.Fatalf("expected ProviderError to match ErrProviderRejection")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != 402 {
		t.Fatalf("errors.As failed: %#v", perr)
	}
}
