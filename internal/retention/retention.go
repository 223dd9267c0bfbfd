// Package retention derives snapshot expirations and checks that a requested
// instant is still readable through time travel.
package retention

import (
	"time"

	"github.com/semmidev/bqvault/internal/domain"
)

// DefaultHorizon is how far back the warehouse serves historical reads.
const DefaultHorizon = 7 * 24 * time.Hour

// ComputeExpiration returns instant + days in UTC calendar arithmetic. Zero
// days means the snapshot never expires.
func ComputeExpiration(instant time.Time, days int) (time.Time, bool) {
	if days <= 0 {
		return time.Time{}, false
	}
	return instant.UTC().AddDate(0, 0, days), true
}

type Window struct {
	Horizon time.Duration
	Now     func() time.Time
}

func NewWindow() *Window {
	return &Window{Horizon: DefaultHorizon, Now: time.Now}
}

func (w *Window) Validate(instant time.Time) error {
	if instant.IsZero() {
		return domain.NewValidationError("instant is required")
	}

	now := w.Now().UTC()
	if instant.After(now) {
		return domain.NewValidationError("instant %s is in the future", instant.UTC().Format(time.RFC3339))
	}

	oldest := now.Add(-w.Horizon)
	if instant.Before(oldest) {
		return domain.NewValidationError("instant %s is older than the time travel window (%s)",
			instant.UTC().Format(time.RFC3339), w.Horizon)
	}

	return nil
}
