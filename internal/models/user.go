package models

import "time"

// UserModel is an anonymous account minted by invite redemption or QR
// linking. Users carry no profile fields of their own; everything personal
// lives behind the scrub filter in messages and profile state.
type UserModel struct {
	Base
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"     gorm:"index;not null"`
}

func (UserModel) TableName() string { return "users" }
