package model

import "time"

// DeviceState is the latest known plug state of a user's device (hot table).
type DeviceState struct {
	UserID     string    `gorm:"primaryKey;size:128"`
	PluggedIn  bool      `gorm:"not null"`
	StatusTime time.Time `gorm:"not null"` // Instant of the status change upstream
	Location   string    `gorm:"size:512"`
	ObservedAt time.Time `gorm:"not null"` // When the watcher last confirmed it
}
