package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/cache"
	"github.com/charlesng35/dgnotes/internal/kvstore"
)

func TestDashboardMergesFields(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	dash := NewDashboard(cache.NewTTL(kvstore.NewMemoryStore(), cache.WithClock(func() time.Time { return now })))

	_, ok := dash.Stats(ctx, "u1")
	require.False(t, ok)

	require.NoError(t, dash.Update(ctx, "u1", StatDiscCount, 21))
	require.NoError(t, dash.Update(ctx, "u1", StatCourseCount, 4))

	stats, ok := dash.Stats(ctx, "u1")
	require.True(t, ok)
	require.EqualValues(t, 21, stats[StatDiscCount])
	require.EqualValues(t, 4, stats[StatCourseCount])

	_, ok = dash.Stats(ctx, "u2")
	require.False(t, ok, "stats are per user")

	now = now.Add(16 * time.Minute)
	_, ok = dash.Stats(ctx, "u1")
	require.False(t, ok)
}
