package models

import "time"

// InviteCodeModel is a single-use admission token. The random high-entropy
// code is the primary key. A row is usable iff UsedAt is null and ExpiresAt
// is in the future; consumption happens through a conditional update whose
// affected-row count decides the race.
type InviteCodeModel struct {
	Code         string     `json:"code"            gorm:"type:char(32);primaryKey"`
	CreatedAt    time.Time  `json:"created"`
	ExpiresAt    time.Time  `json:"expires_at"      gorm:"index;not null"`
	UsedAt       *time.Time `json:"used_at"         gorm:"index"`
	UsedByUserID *string    `json:"used_by_user_id"`
}

func (InviteCodeModel) TableName() string { return "invite_codes" }
