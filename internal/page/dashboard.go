package page

import (
	"context"

	"github.com/charlesng35/dgnotes/internal/cache"
)

// Dashboard fields kept in the home stats entry.
const (
	StatDiscCount     = "discCount"
	StatCourseCount   = "courseCount"
	StatLastTwoRounds = "lastTwoRounds"
)

// Dashboard keeps the per-user home statistics in the TTL cache. Each live
// counter updates its own field.
type Dashboard struct {
	ttl *cache.TTL
}

// NewDashboard builds a dashboard over the TTL cache.
func NewDashboard(ttl *cache.TTL) *Dashboard {
	return &Dashboard{ttl: ttl}
}

// Stats returns the cached statistics for userID when they are fresh.
func (d *Dashboard) Stats(ctx context.Context, userID string) (map[string]any, bool) {
	var stats map[string]any
	if !d.ttl.GetFresh(ctx, cache.UserKey(cache.KeyHomeStats, userID), cache.TTLDashboardMinutes, &stats) {
		return nil, false
	}
	return stats, true
}

// Update overlays one field on the cached statistics and restamps the entry.
func (d *Dashboard) Update(ctx context.Context, userID, field string, value any) error {
	return d.ttl.Merge(ctx, cache.UserKey(cache.KeyHomeStats, userID), cache.TTLDashboardMinutes, map[string]any{field: value})
}
