package models

import (
	"time"

	"gorm.io/datatypes"
)

// CacheGeneration names one versioned set of cached shell responses.
type CacheGeneration struct {
	Label     string    `gorm:"primaryKey;size:128"`
	CreatedAt time.Time `gorm:"index"`
}

// CachedResponse stores a single response inside a cache generation.
type CachedResponse struct {
	BaseModel

	Generation string         `gorm:"size:128;not null;uniqueIndex:idx_cached_response_request,priority:1"`
	Method     string         `gorm:"size:16;not null;uniqueIndex:idx_cached_response_request,priority:2"`
	URL        string         `gorm:"size:512;not null;uniqueIndex:idx_cached_response_request,priority:3"`
	Status     int            `gorm:"not null"`
	Header     datatypes.JSON
	Body       []byte
}
