package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/database"
	"github.com/charlesng35/dgnotes/internal/models"
)

// VersionSetting is the system setting that records the object store layout.
const VersionSetting = "share.store_version"

// upgrades[n] moves the store from version n to n+1.
var upgrades = []func(tx *gorm.DB) error{
	func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.SharedFile{})
	},
}

// DatabaseStore keeps pending files in the primary SQL database.
type DatabaseStore struct {
	db *gorm.DB
}

// OpenDatabaseStore opens the store, running any pending schema upgrades first.
func OpenDatabaseStore(ctx context.Context, db *gorm.DB) (*DatabaseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database handle is nil", ErrNotOpen)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&models.SystemSetting{}); err != nil {
			return err
		}

		raw, err := database.GetSystemSetting(ctx, tx, VersionSetting)
		if err != nil {
			return err
		}
		current := 0
		if raw != "" {
			if current, err = strconv.Atoi(raw); err != nil {
				return fmt.Errorf("parse %s=%q: %w", VersionSetting, raw, err)
			}
		}

		if current > SchemaVersion {
			return fmt.Errorf("%w: recorded %d, supported %d", ErrVersion, current, SchemaVersion)
		}
		if current == SchemaVersion {
			return nil
		}

		for v := current; v < SchemaVersion; v++ {
			if err := upgrades[v](tx); err != nil {
				return fmt.Errorf("upgrade to version %d: %w", v+1, err)
			}
		}
		return database.UpsertSystemSetting(ctx, tx, VersionSetting, strconv.Itoa(SchemaVersion))
	})
	if err != nil {
		if errors.Is(err, ErrVersion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNotOpen, err)
	}

	return &DatabaseStore{db: db}, nil
}

// Put inserts file and returns its generated id.
func (s *DatabaseStore) Put(ctx context.Context, file PendingFile) (uint64, error) {
	size := file.Size
	if size == 0 {
		size = int64(len(file.Data))
	}
	row := models.SharedFile{
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        size,
		Data:        file.Data,
		Timestamp:   file.Timestamp,
	}
	if row.Data == nil {
		row.Data = []byte{}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: put: %v", ErrNotOpen, err)
	}
	return row.ID, nil
}

// All reads every pending file in one query.
func (s *DatabaseStore) All(ctx context.Context) ([]PendingFile, error) {
	var rows []models.SharedFile
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrNotOpen, err)
	}

	files := make([]PendingFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, PendingFile{
			ID:          row.ID,
			Name:        row.Name,
			ContentType: row.ContentType,
			Size:        row.Size,
			Data:        row.Data,
			Timestamp:   row.Timestamp,
		})
	}
	return files, nil
}

// Delete removes the given ids in one transaction.
func (s *DatabaseStore) Delete(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.SharedFile{}).Error; err != nil {
		return fmt.Errorf("%w: delete: %v", ErrNotOpen, err)
	}
	return nil
}

// Clear removes every pending file.
func (s *DatabaseStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SharedFile{}).Error; err != nil {
		return fmt.Errorf("%w: clear: %v", ErrNotOpen, err)
	}
	return nil
}

// Count returns the number of pending files.
func (s *DatabaseStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SharedFile{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrNotOpen, err)
	}
	return count, nil
}
