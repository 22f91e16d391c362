package models

import "time"

// PostLike is one member of a post's likes set.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:24" json:"postId"`
	UserID    string    `gorm:"primaryKey;size:24;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
