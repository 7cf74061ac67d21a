package kvstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/dgnotes/internal/models"
)

// DatabaseStore implements Store on top of the primary SQL database.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

// Get retrieves the raw value stored under key.
func (s *DatabaseStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, unavailable("get", key, errors.New("database store not initialised"))
	}

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where(keyEquals(key)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts the value for key.
func (s *DatabaseStore) Set(ctx context.Context, key, value string) error {
	if s == nil {
		return unavailable("set", key, errors.New("database store not initialised"))
	}

	entry := models.CacheEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
	if err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Remove deletes key from the store.
func (s *DatabaseStore) Remove(ctx context.Context, key string) error {
	if s == nil {
		return unavailable("remove", key, errors.New("database store not initialised"))
	}

	if err := s.db.WithContext(ctx).Where(keyEquals(key)).Delete(&models.CacheEntry{}).Error; err != nil {
		return unavailable("remove", key, err)
	}
	return nil
}

func keyEquals(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
