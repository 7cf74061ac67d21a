package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

// sqliteDialector resolves the DSN for a file or in-memory database. File
// databases get a single connection: the share route and the page both write
// the shared file table, and SQLite allows one writer at a time.
func sqliteDialector(cfg Config) (gorm.Dialector, pool, error) {
	if cfg.DSN != "" {
		return sqlite.Open(cfg.DSN), pool{}, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return sqlite.Open(sqliteMemoryDSN), pool{}, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pool{}, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path))
	return sqlite.Open(dsn), pool{maxOpen: 1}, nil
}
