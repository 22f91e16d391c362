package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups posts. PostCount caches the number of published posts referencing it.
type Category struct {
	ID          string    `gorm:"primaryKey;size:24" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:200" json:"description"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	PostCount   int64     `gorm:"not null;default:0" json:"postCount"`
	CreatedBy   string    `gorm:"size:24;index" json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
