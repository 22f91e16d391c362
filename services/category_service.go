package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

const (
	msgCategoryNotFound  = "Category not found"
	msgCategoryDuplicate = "Category with this name already exists"
	msgCategoryHasPosts  = "Cannot delete category that has posts. Please reassign or delete posts first."
	recentCategoryPosts  = 10
)

// CategoryInput carries category fields. Nil pointers leave the stored value unchanged on update.
type CategoryInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// CategoryDetail is a category with its most recent published posts.
type CategoryDetail struct {
	Category      models.Category
	Posts         []models.Post
	CommentCounts map[string]int64
}

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

type categoryRow struct {
	models.Category
	LivePostCount int64
}

// List returns active categories by name, with post counts computed live.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var rows []categoryRow
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Select("categories.*, COUNT(posts.id) AS live_post_count").
		Joins("LEFT JOIN posts ON posts.category_id = categories.id AND posts.is_published = ?", true).
		Where("categories.is_active = ?", true).
		Group("categories.id").
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, msgCategoryNotFound, "")
	}

	out := make([]models.Category, 0, len(rows))
	for _, r := range rows {
		c := r.Category
		c.PostCount = r.LivePostCount
		out = append(out, c)
	}
	return out, nil
}

// Get resolves a category by id or slug and loads its recent published posts.
func (s *CategoryService) Get(ctx context.Context, idOrSlug string) (*CategoryDetail, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).First(&cat).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, "")
	}

	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("category_id = ? AND is_published = ?", cat.ID, true).
		Count(&cat.PostCount).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, "")
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Preload("Likes", orderedLikes).
		Where("category_id = ? AND is_published = ?", cat.ID, true).
		Order("published_at DESC, id DESC").
		Limit(recentCategoryPosts).
		Find(&posts).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, "")
	}
	for i := range posts {
		posts[i].Category = cat
	}

	counts, err := commentCounts(ctx, s.db, posts)
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: cat, Posts: posts, CommentCounts: counts}, nil
}

// Create adds a category owned by actor. Names are unique regardless of case.
func (s *CategoryService) Create(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	if in.Name == nil {
		return nil, apperror.NewValidation("Validation failed", apperror.FieldError{Field: "name", Message: "Category name is required"})
	}
	name := strings.TrimSpace(*in.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	cat := models.Category{
		Name:     name,
		Slug:     categorySlug(name),
		IsActive: true,
	}
	if in.Description != nil {
		cat.Description = utils.StripTags(*in.Description)
	}
	if actor != nil {
		cat.CreatedBy = actor.ID
	}
	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, msgCategoryDuplicate)
	}
	return &cat, nil
}

// Update applies a partial change. A new name re-derives the slug.
func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, "")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != cat.Name {
			if err := s.ensureNameFree(ctx, name, cat.ID); err != nil {
				return nil, err
			}
			cat.Name = name
			cat.Slug = categorySlug(name)
		}
	}
	if in.Description != nil {
		cat.Description = utils.StripTags(*in.Description)
	}
	if in.IsActive != nil {
		cat.IsActive = *in.IsActive
	}

	if err := s.db.WithContext(ctx).Model(&cat).
		Select("name", "slug", "description", "is_active", "updated_at").
		Updates(&cat).Error; err != nil {
		return nil, dbError(err, msgCategoryNotFound, msgCategoryDuplicate)
	}
	return &cat, nil
}

// Delete removes a category that no post references.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		return dbError(err, msgCategoryNotFound, "")
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("category_id = ?", cat.ID).Count(&n).Error; err != nil {
		return dbError(err, msgCategoryNotFound, "")
	}
	if n > 0 {
		return apperror.NewBadRequest(msgCategoryHasPosts)
	}
	return dbError(s.db.WithContext(ctx).Delete(&cat).Error, msgCategoryNotFound, "")
}

func (s *CategoryService) ensureNameFree(ctx context.Context, name, exceptID string) error {
	q := s.db.WithContext(ctx).Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return dbError(err, msgCategoryNotFound, "")
	}
	if n > 0 {
		return apperror.NewDuplicate(msgCategoryDuplicate, nil)
	}
	return nil
}

func categorySlug(name string) string {
	if slug := utils.Slugify(name); slug != "" {
		return slug
	}
	return "category"
}

// SyncCategoryPostCount recomputes the cached published post count of a category.
// Failures are logged only: the write that triggered the sync has already committed.
func SyncCategoryPostCount(ctx context.Context, db *gorm.DB, categoryID string) {
	if categoryID == "" {
		return
	}
	err := db.WithContext(context.WithoutCancel(ctx)).Model(&models.Category{}).
		Where("id = ?", categoryID).
		UpdateColumn("post_count", db.Model(&models.Post{}).
			Select("COUNT(*)").
			Where("category_id = ? AND is_published = ?", categoryID, true)).Error
	if err != nil {
		utils.Logger.Warn("sync category post count failed", zap.String("category_id", categoryID), zap.Error(err))
	}
}
