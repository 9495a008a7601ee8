package models

import "time"

// QrLinkModel is the durable binding between a scanned device identifier and
// a user. Links have no fixed expiry; they are pruned on inactivity only, so
// a device can come back after months.
type QrLinkModel struct {
	QrID       string    `json:"qr_id"        gorm:"type:varchar(120);primaryKey"`
	UserID     string    `json:"user_id"      gorm:"index;not null"`
	CreatedAt  time.Time `json:"created"`
	LastSeenAt time.Time `json:"last_seen_at" gorm:"index;not null"`
}

func (QrLinkModel) TableName() string { return "qr_links" }

// QrResolutionModel is the short-lived proof of identity handed to a
// scanning device. It is deleted once exchanged for a login proof, or by TTL.
type QrResolutionModel struct {
	Base
	QrID      string    `json:"qr_id"      gorm:"index;not null"`
	UserID    string    `json:"user_id"    gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (QrResolutionModel) TableName() string { return "qr_resolutions" }

// LoginProofModel converts a resolution into a session exactly once. Like
// invite codes, consumption is a conditional update on UsedAt.
type LoginProofModel struct {
	Base
	UserID       string     `json:"user_id"       gorm:"index;not null"`
	ResolutionID string     `json:"resolution_id" gorm:"not null"`
	ExpiresAt    time.Time  `json:"expires_at"    gorm:"index;not null"`
	UsedAt       *time.Time `json:"used_at"       gorm:"index"`
}

func (LoginProofModel) TableName() string { return "login_proofs" }
