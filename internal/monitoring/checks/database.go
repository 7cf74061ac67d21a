package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/database"
	"github.com/charlesng35/dgnotes/internal/monitoring"
)

// ComponentOfflineStore names the database that backs the offline caches.
const ComponentOfflineStore = "offline_store"

const defaultDatabaseTimeout = 2 * time.Second

// Database pings the database behind the durable stores and reports the
// dialect. A reachable database without the store tables is degraded: reads
// fall through to the network until migrations run.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck(ComponentOfflineStore, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "offline store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(probeCtx)
		}
		if err != nil {
			return monitoring.ResultFromError(ComponentOfflineStore, err, time.Since(start))
		}

		var missing []string
		migrator := db.WithContext(probeCtx).Migrator()
		for _, model := range database.StoreModels() {
			if !migrator.HasTable(model) {
				missing = append(missing, fmt.Sprintf("%T", model))
			}
		}
		if len(missing) > 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "missing tables: " + strings.Join(missing, ", "),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  db.Dialector.Name(),
			Duration: time.Since(start),
		}
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
