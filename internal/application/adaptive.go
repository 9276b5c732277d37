package application

import (
	"time"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// ActivityTier classifies how recently the user's todos changed. It sets the
// background sync frequency.
type ActivityTier int

const (
	// TierHot indicates a change within the last 5 minutes. Syncs every 15 seconds.
	TierHot ActivityTier = iota
	// TierActive indicates a change within the last hour. Syncs every minute.
	TierActive
	// TierWarm indicates a change within the last day. Syncs every 5 minutes.
	TierWarm
	// TierStale indicates no change for a day or more. Syncs every 15 minutes.
	TierStale
)

// Sync intervals per activity tier.
const (
	intervalHot    = 15 * time.Second
	intervalActive = 1 * time.Minute
	intervalWarm   = 5 * time.Minute
	intervalStale  = 15 * time.Minute
)

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval returns the sync interval for the given activity tier.
func tierInterval(tier ActivityTier) time.Duration {
	switch tier {
	case TierHot:
		return intervalHot
	case TierActive:
		return intervalActive
	case TierWarm:
		return intervalWarm
	case TierStale:
		return intervalStale
	default:
		return intervalActive
	}
}

// classifyActivity determines the activity tier from the time of the last
// change. A zero time is TierStale.
func classifyActivity(lastActivity, now time.Time) ActivityTier {
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := now.Sub(lastActivity)

	switch {
	case elapsed < 5*time.Minute:
		return TierHot
	case elapsed < time.Hour:
		return TierActive
	case elapsed < 24*time.Hour:
		return TierWarm
	default:
		return TierStale
	}
}

// lastActivity returns the latest of CreatedAt, UpdatedAt and CompletedAt for t.
func lastActivity(t model.Todo) time.Time {
	latest := t.CreatedAt.Time
	if t.UpdatedAt != nil && t.UpdatedAt.After(latest) {
		latest = t.UpdatedAt.Time
	}
	if t.CompletedAt != nil && t.CompletedAt.After(latest) {
		latest = t.CompletedAt.Time
	}
	return latest
}

// freshestActivity finds the most recent change across todos. Returns the zero
// time if the slice is empty, which classifies as TierStale.
func freshestActivity(todos []model.Todo) time.Time {
	var newest time.Time
	for _, t := range todos {
		if a := lastActivity(t); a.After(newest) {
			newest = a
		}
	}
	return newest
}
