package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	dbtestutil "github.com/charlesng35/dgnotes/internal/database/testutil"
	"github.com/charlesng35/dgnotes/internal/models"
	"github.com/charlesng35/dgnotes/internal/worker"
)

func TestSampleRefreshesGauges(t *testing.T) {
	ctx := context.Background()
	files := blobstore.NewMemoryStore()
	for i := 0; i < 3; i++ {
		_, err := files.Put(ctx, blobstore.PendingFile{Name: "a.csv", Timestamp: time.Now()})
		require.NoError(t, err)
	}
	generations := worker.NewMemoryGenerations()
	_, err := generations.Open(ctx, "v1")
	require.NoError(t, err)
	_, err = generations.Open(ctx, "v2")
	require.NoError(t, err)

	sampler := NewSampler(files, generations)
	require.NoError(t, sampler.Sample(ctx))

	require.Equal(t, float64(3), gaugeValue(t, "dgnotes_pending_shared_files"))
	require.Equal(t, float64(2), gaugeValue(t, "dgnotes_cache_generations"))
}

func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.Len(t, family.GetMetric(), 1)
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not registered", name)
	return 0
}

func TestSampleCollectsErrors(t *testing.T) {
	files := blobstore.NewMemoryStore()
	files.FailOpen(true)

	sampler := NewSampler(files, worker.NewMemoryGenerations())
	err := sampler.Sample(context.Background())
	require.ErrorIs(t, err, blobstore.ErrNotOpen)
}

func TestPruneOrphanedResponses(t *testing.T) {
	ctx := context.Background()
	db := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())

	require.NoError(t, db.Create(&models.CacheGeneration{Label: "live"}).Error)
	require.NoError(t, db.Create(&models.CachedResponse{Generation: "live", Method: "GET", URL: "/", Status: 200, Body: []byte("a")}).Error)
	require.NoError(t, db.Create(&models.CachedResponse{Generation: "gone", Method: "GET", URL: "/", Status: 200, Body: []byte("b")}).Error)

	removed, err := PruneOrphanedResponses(ctx, db)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.CachedResponse
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "live", remaining[0].Generation)

	_, err = PruneOrphanedResponses(ctx, nil)
	require.Error(t, err)
}

func TestSamplerRunOnceAndSchedule(t *testing.T) {
	db := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())
	c := cron.New(cron.WithLogger(cron.DiscardLogger))

	sampler := NewSampler(blobstore.NewMemoryStore(), worker.NewDatabaseGenerations(db),
		WithDatabase(db),
		WithCron(c),
		WithSampleSchedule("@every 1h"),
		WithPruneSchedule("@every 2h"),
	)
	require.NoError(t, sampler.Start())
	require.Len(t, c.Entries(), 2)

	<-sampler.Stop().Done()
	require.NoError(t, sampler.RunOnce(context.Background()))
}

func TestSamplerRejectsBadSchedule(t *testing.T) {
	sampler := NewSampler(blobstore.NewMemoryStore(), nil, WithSampleSchedule("not a schedule"))
	require.Error(t, sampler.Start())
}

func TestSamplerWithoutJobs(t *testing.T) {
	sampler := NewSampler(nil, nil)
	require.NoError(t, sampler.Start())
	require.NoError(t, sampler.RunOnce(context.Background()))
}
