package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post. Inactive comments are hidden but kept.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:24" json:"id"`
	PostID    string    `gorm:"size:24;index;not null" json:"postId"`
	UserID    string    `gorm:"size:24;index;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}
