package models

import (
	"time"
)

// CacheEntry is one row of the durable key-value store. Values are opaque
// strings; expiry, when any, lives inside the value.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:256"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
