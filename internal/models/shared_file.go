package models

import "time"

// SharedFile is a file received on the share route that the page has not collected yet.
type SharedFile struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:512"`
	ContentType string    `gorm:"size:255"`
	Size        int64     `gorm:"not null;default:0"`
	Data        []byte    `gorm:"not null"`
	Timestamp   time.Time `gorm:"index;not null"`
}
