package models

import (
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/pkg/ident"
	"gorm.io/gorm"
)

// Base is the base model for all entities. IDs are UUIDv7 strings, so
// primary keys sort by creation time. There is no soft-delete column: the
// retention sweep must physically remove rows.
type Base struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ident.New()
	}
	return nil
}
