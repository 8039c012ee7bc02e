package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Tag labels recipes; name, color and slug are each unique
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"size:7;uniqueIndex;not null" json:"color"`
	Slug      string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
}

// BeforeCreate fills the slug from the name when it is left empty
func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name)
	}
	return nil
}
