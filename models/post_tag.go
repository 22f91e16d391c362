package models

// PostTag indexes one tag of a post for search.
type PostTag struct {
	PostID string `gorm:"primaryKey;size:24" json:"postId"`
	Tag    string `gorm:"primaryKey;size:64;index" json:"tag"`
}
