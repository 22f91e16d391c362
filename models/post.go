package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultFeaturedImage = "default-post.jpg"
	wordsPerMinute       = 200
)

// Post is a blog article. LikesCount mirrors the size of the post's likes set.
type Post struct {
	ID              string     `gorm:"primaryKey;size:24" json:"id"`
	Title           string     `gorm:"size:100;not null" json:"title"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	Excerpt         string     `gorm:"size:200" json:"excerpt"`
	FeaturedImage   string     `gorm:"size:512" json:"featuredImage"`
	Slug            string     `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	AuthorID        string     `gorm:"size:24;index;not null" json:"authorId"`
	CategoryID      string     `gorm:"size:24;index;not null" json:"categoryId"`
	Tags            []string   `gorm:"serializer:json;type:text" json:"tags"`
	IsPublished     bool       `gorm:"index;not null;default:false" json:"isPublished"`
	PublishedAt     *time.Time `gorm:"index" json:"publishedAt"`
	ViewCount       int64      `gorm:"not null;default:0" json:"viewCount"`
	LikesCount      int64      `gorm:"not null;default:0" json:"likesCount"`
	ReadingTime     int        `gorm:"not null;default:0" json:"readingTime"`
	MetaDescription string     `gorm:"size:160" json:"metaDescription"`
	SEOKeywords     []string   `gorm:"serializer:json;type:text" json:"seoKeywords"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Author          User       `gorm:"foreignKey:AuthorID" json:"author"`
	Category        Category   `gorm:"foreignKey:CategoryID" json:"category"`
	Comments        []Comment  `gorm:"foreignKey:PostID" json:"comments"`
	Likes           []PostLike `gorm:"foreignKey:PostID" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.FeaturedImage == "" {
		p.FeaturedImage = DefaultFeaturedImage
	}
	return nil
}

// SetContent stores content and recomputes the reading time.
func (p *Post) SetContent(content string) {
	p.Content = content
	p.ReadingTime = ReadingTime(content)
}

// SetPublished switches the published flag. PublishedAt is stamped on the first publish only.
func (p *Post) SetPublished(published bool, now time.Time) {
	p.IsPublished = published
	if published && p.PublishedAt == nil {
		p.PublishedAt = &now
	}
}

// EditableBy reports whether u may modify or delete the post.
func (p *Post) EditableBy(u *User) bool {
	return u != nil && (p.AuthorID == u.ID || u.IsAdmin())
}

// VisibleTo reports whether u may read the post. Drafts are restricted to the author and admins.
func (p *Post) VisibleTo(u *User) bool {
	return p.IsPublished || p.EditableBy(u)
}

func (p *Post) URL() string {
	return "/posts/" + p.Slug
}

// LikedBy returns the ids of users in the loaded likes set.
func (p *Post) LikedBy() []string {
	ids := make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		ids = append(ids, l.UserID)
	}
	return ids
}

// ActiveComments returns the loaded comments still marked active.
func (p *Post) ActiveComments() []Comment {
	out := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// ReadingTime estimates minutes to read content at 200 words per minute, rounded up.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// NormalizeTags trims and lower-cases tags, dropping empties.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
