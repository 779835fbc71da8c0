package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// Detect classifies current against the last known state of a tracked row.
// previous is nil when there is no prior state. A zero lastNotificationAt
// means the row has never notified and therefore cannot be debounced.
//
// Timestamps are compared at domain.TimestampGranularity, so modifications
// within the same second collapse into one observation.
func Detect(
	current domain.DocumentMetadata,
	previous *domain.TrackedDocument,
	debounceWindow time.Duration,
	lastNotificationAt time.Time,
	now time.Time,
) domain.ChangeDetectionResult {
	result := domain.ChangeDetectionResult{
		CurrentModifier:   current.LastModifiedBy,
		CurrentModifiedAt: domain.NormaliseTimestamp(current.LastModifiedAt),
	}

	// First observation is always reported.
	if previous == nil || previous.LastKnownModifiedAt.IsZero() {
		result.HasChanged = true
		result.ChangeType = domain.ChangeTypeNewDocument
		result.Reason = "first observation"
		return result
	}

	result.PreviousModifier = previous.LastKnownModifier
	result.PreviousModifiedAt = domain.NormaliseTimestamp(previous.LastKnownModifiedAt)

	timeChanged := !result.CurrentModifiedAt.Equal(result.PreviousModifiedAt)
	userChanged := result.CurrentModifier != result.PreviousModifier

	switch {
	case timeChanged:
		result.HasChanged = true
		result.ChangeType = domain.ChangeTypeTimeUpdated
		result.Reason = fmt.Sprintf("modified at %s (was %s)",
			result.CurrentModifiedAt.Format(time.RFC3339), result.PreviousModifiedAt.Format(time.RFC3339))
	case userChanged:
		result.HasChanged = true
		result.ChangeType = domain.ChangeTypeUserChanged
		result.Reason = fmt.Sprintf("modifier changed from %q to %q", result.PreviousModifier, result.CurrentModifier)
	default:
		result.Reason = "no change"
		return result
	}

	if !lastNotificationAt.IsZero() && now.Sub(lastNotificationAt) < debounceWindow {
		result.Debounced = true
		result.Reason += fmt.Sprintf("; debounced, last notified %s ago", now.Sub(lastNotificationAt).Round(time.Second))
	}

	return result
}
