package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/models"
)

// StoreModels lists the tables owned by the key-value store and the worker
// cache generations. The shared file table is versioned separately and is
// created when the blob store is opened.
func StoreModels() []any {
	return []any{
		&models.SystemSetting{},
		&models.CacheEntry{},
		&models.CacheGeneration{},
		&models.CachedResponse{},
	}
}

// AutoMigrate creates or updates the tables listed by StoreModels.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(StoreModels()...)
}
