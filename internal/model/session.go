package model

import "time"

// Session binds an opaque login token to an upstream user.
type Session struct {
	Token      string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"index;size:128;not null"`
	Identifier string    `gorm:"size:256;not null"` // email or phone used at login
	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

// Expired reports whether the session is no longer valid at t.
func (s Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
