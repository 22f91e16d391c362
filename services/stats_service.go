package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

// SiteStats holds aggregate counters for the whole site.
type SiteStats struct {
	Users      int64 `json:"userCount"`
	Posts      int64 `json:"postCount"`
	Categories int64 `json:"categoryCount"`
	Comments   int64 `json:"commentCount"`
	Views      int64 `json:"totalViews"`
}

// PostStats holds counters of a single post.
type PostStats struct {
	PostID   string `json:"postId"`
	Views    int64  `json:"viewCount"`
	Likes    int64  `json:"likesCount"`
	Comments int64  `json:"commentsCount"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Site returns site wide counters. A failing counter reports 0 instead of failing the whole result.
func (s *StatsService) Site(ctx context.Context) SiteStats {
	var st SiteStats
	db := s.db.WithContext(ctx)

	s.count(db.Model(&models.User{}).Where("is_active = ?", true), "users", &st.Users)
	s.count(db.Model(&models.Post{}).Where("is_published = ?", true), "posts", &st.Posts)
	s.count(db.Model(&models.Category{}).Where("is_active = ?", true), "categories", &st.Categories)
	s.count(db.Model(&models.Comment{}).Where("is_active = ?", true), "comments", &st.Comments)

	if err := db.Model(&models.Post{}).
		Where("is_published = ?", true).
		Select("COALESCE(SUM(view_count), 0)").
		Scan(&st.Views).Error; err != nil {
		utils.Logger.Warn("stats views failed", zap.Error(err))
		st.Views = 0
	}
	return st
}

func (s *StatsService) count(q *gorm.DB, name string, dst *int64) {
	if err := q.Count(dst).Error; err != nil {
		utils.Logger.Warn("stats count failed", zap.String("table", name), zap.Error(err))
		*dst = 0
	}
}

// Post returns the counters of one published post, resolved by id or slug.
func (s *StatsService) Post(ctx context.Context, idOrSlug string) (*PostStats, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Select("id", "view_count", "likes_count").
		Where("(id = ? OR slug = ?) AND is_published = ?", idOrSlug, idOrSlug, true).
		First(&post).Error
	if err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}

	st := &PostStats{PostID: post.ID, Views: post.ViewCount, Likes: post.LikesCount}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND is_active = ?", post.ID, true).
		Count(&st.Comments).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	return st, nil
}
