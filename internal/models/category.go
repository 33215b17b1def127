package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a spending or income bucket. Global defaults have no UserID and are
// visible to every user.
type Category struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_categories_user_name" json:"user_id,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	NameKey   string     `gorm:"not null;uniqueIndex:idx_categories_user_name" json:"-"`
	Color     string     `json:"color"`
	Icon      string     `json:"icon"`
	IsIncome  bool       `gorm:"not null;default:false" json:"is_income"`
	IsDefault bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate fills the id and the case-folded uniqueness key.
func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.NameKey = CategoryKey(c.Name)
	return nil
}

// CategoryKey is the case-insensitive identity of a category name.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CategorySpec describes a category to look up or create.
type CategorySpec struct {
	UserID   uuid.UUID
	Name     string
	Color    string
	Icon     string
	IsIncome bool
}
