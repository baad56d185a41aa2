package generation

import (
	"strings"

	"github.com/Sketles/Takopi-sub003/internal/domain"
)

// Provider status vocabulary as sent in webhook callbacks.
const (
	ProviderStatusPending    = "PENDING"
	ProviderStatusInProgress = "IN_PROGRESS"
	ProviderStatusSucceeded  = "SUCCEEDED"
	ProviderStatusFailed     = "FAILED"
	ProviderStatusCanceled   = "CANCELED"
	ProviderStatusExpired    = "EXPIRED"
)

// MapProviderStatus translates a provider status into the local state machine.
// Unrecognised values map to PENDING with known=false so callers can log the anomaly
// without failing the callback.
func MapProviderStatus(raw string) (status domain.TaskStatus, known bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case ProviderStatusPending:
		return domain.TaskStatusPending, true
	case ProviderStatusInProgress:
		return domain.TaskStatusInProgress, true
	case ProviderStatusSucceeded:
		return domain.TaskStatusSucceeded, true
	case ProviderStatusFailed:
		return domain.TaskStatusFailed, true
	case ProviderStatusCanceled:
		return domain.TaskStatusCanceled, true
	case ProviderStatusExpired:
		return domain.TaskStatusFailed, true
	default:
		return domain.TaskStatusPending, false
	}
}
