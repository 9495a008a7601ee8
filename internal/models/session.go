package models

import "time"

// SessionModel tracks signed-in sessions. The cookie token references a row
// here; the row, not the token, is authoritative for validity.
type SessionModel struct {
	Base
	UserID    string    `json:"user_id"    gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (SessionModel) TableName() string { return "sessions" }
