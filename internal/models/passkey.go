package models

import "time"

// WebauthnChallengeKind distinguishes registration from login challenges.
// Verify calls must present a challenge of the matching kind.
type WebauthnChallengeKind string

const (
	ChallengeRegister WebauthnChallengeKind = "register"
	ChallengeLogin    WebauthnChallengeKind = "login"
)

// WebauthnChallengeModel is a single-use nonce for one registration or login
// attempt. Deleted on verify regardless of outcome, or by TTL.
type WebauthnChallengeModel struct {
	Base
	UserID    string                `json:"user_id"    gorm:"index;not null"`
	Kind      WebauthnChallengeKind `json:"kind"       gorm:"type:varchar(16);not null"`
	Challenge string                `json:"-"          gorm:"type:text;not null"`
	ExpiresAt time.Time             `json:"expires_at" gorm:"index;not null"`
}

func (WebauthnChallengeModel) TableName() string { return "webauthn_challenges" }

// PasskeyModel stores the single WebAuthn credential a user may register.
// UserID is the primary key, which gives natural upsert semantics. Counter
// is the authenticator signature counter; it never moves backward.
type PasskeyModel struct {
	UserID       string    `json:"user_id"       gorm:"type:char(36);primaryKey"`
	CredentialID string    `json:"credential_id" gorm:"type:text;not null"`
	PublicKey    string    `json:"-"             gorm:"type:text;not null"`
	Counter      uint32    `json:"counter"`
	CreatedAt    time.Time `json:"created"`
}

func (PasskeyModel) TableName() string { return "passkeys" }
