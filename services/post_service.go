package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

const (
	msgPostNotFound     = "Post not found"
	msgPostDuplicate    = "A post with this slug already exists"
	msgCommentNotFound  = "Comment not found"
	msgLikeConflict     = "Like was updated concurrently, please try again"
	msgInvalidCategory  = "Invalid category"
	MsgPostPublished    = "Post published successfully!"
	MsgPostDraft        = "Post saved as draft"
	maxCommentLength    = 1000
	DefaultPageLimit    = 10
	MaxPageLimit        = 100
	DefaultPopularLimit = 10
	MaxPopularLimit     = 50
)

// PostInput carries post fields. Nil values leave stored fields unchanged on update.
type PostInput struct {
	Title           *string
	Content         *string
	Excerpt         *string
	FeaturedImage   *string
	CategoryID      *string
	Tags            *[]string
	IsPublished     *bool
	MetaDescription *string
	SEOKeywords     *[]string
}

// ListQuery filters published posts.
type ListQuery struct {
	Category string
	Page     int
	Limit    int
}

// PostPage is one page of posts with the active comment count of each.
type PostPage struct {
	Posts         []models.Post
	CommentCounts map[string]int64
	Pagination    utils.Pagination
}

// LikeResult reports the state of a post's likes set after a toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int64
	Likes      []string
}

type PostService struct {
	db    *gorm.DB
	views ViewRecorder
	now   func() time.Time
}

// NewPostService creates the service. views may be nil, in which case reads do not count views.
func NewPostService(db *gorm.DB, views ViewRecorder) *PostService {
	return &PostService{db: db, views: views, now: time.Now}
}

// Create inserts a post authored by actor and refreshes its category count.
func (s *PostService) Create(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if in.Title == nil || in.Content == nil || in.CategoryID == nil {
		return nil, apperror.NewValidation("Validation failed",
			apperror.FieldError{Field: "title, content, category", Message: "Title, content and category are required"})
	}
	if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
		return nil, err
	}

	post := models.Post{
		AuthorID:   actor.ID,
		CategoryID: *in.CategoryID,
		Tags:       []string{},
	}
	if err := s.apply(&post, in); err != nil {
		return nil, err
	}
	slug, err := s.uniqueSlug(ctx, post.Title, "")
	if err != nil {
		return nil, dbError(err, msgPostNotFound, msgPostDuplicate)
	}
	post.Slug = slug

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Category", "Comments", "Likes").Create(&post).Error; err != nil {
			return err
		}
		return syncTags(tx, post.ID, post.Tags)
	})
	if err != nil {
		return nil, dbError(err, msgPostNotFound, msgPostDuplicate)
	}
	SyncCategoryPostCount(ctx, s.db, post.CategoryID)
	return s.load(ctx, post.ID)
}

// Update applies a partial change on behalf of the author or an admin.
func (s *PostService) Update(ctx context.Context, actor *models.User, id string, in PostInput) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	if !post.EditableBy(actor) {
		return nil, apperror.NewForbidden("Not authorized to update this post")
	}

	previousCategory := post.CategoryID
	previousTitle := post.Title
	if in.CategoryID != nil && *in.CategoryID != post.CategoryID {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		post.CategoryID = *in.CategoryID
	}
	if err := s.apply(&post, in); err != nil {
		return nil, err
	}
	if post.Title != previousTitle {
		slug, err := s.uniqueSlug(ctx, post.Title, post.ID)
		if err != nil {
			return nil, dbError(err, msgPostNotFound, msgPostDuplicate)
		}
		post.Slug = slug
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&post).
			Select("title", "slug", "content", "reading_time", "excerpt", "featured_image", "category_id",
				"tags", "is_published", "published_at", "meta_description", "seo_keywords", "updated_at").
			Updates(&post).Error; err != nil {
			return err
		}
		if in.Tags == nil {
			return nil
		}
		return syncTags(tx, post.ID, post.Tags)
	})
	if err != nil {
		return nil, dbError(err, msgPostNotFound, msgPostDuplicate)
	}

	SyncCategoryPostCount(ctx, s.db, previousCategory)
	if post.CategoryID != previousCategory {
		SyncCategoryPostCount(ctx, s.db, post.CategoryID)
	}
	return s.load(ctx, post.ID)
}

// apply copies present input fields onto post, sanitizing text and deriving reading time and publish state.
func (s *PostService) apply(post *models.Post, in PostInput) error {
	if in.Title != nil {
		title := utils.StripTags(*in.Title)
		if title == "" {
			return apperror.NewValidation("Validation failed", apperror.FieldError{Field: "title", Message: "Title is required"})
		}
		post.Title = title
	}
	if in.Content != nil {
		content := utils.SanitizeHTML(strings.TrimSpace(*in.Content))
		if strings.TrimSpace(content) == "" {
			return apperror.NewValidation("Validation failed", apperror.FieldError{Field: "content", Message: "Content is required"})
		}
		if content != post.Content {
			post.SetContent(content)
		}
	}
	if in.Excerpt != nil {
		post.Excerpt = utils.StripTags(*in.Excerpt)
	}
	if in.FeaturedImage != nil {
		post.FeaturedImage = strings.TrimSpace(*in.FeaturedImage)
		if post.FeaturedImage == "" {
			post.FeaturedImage = models.DefaultFeaturedImage
		}
	}
	if in.Tags != nil {
		post.Tags = utils.UniqueStrings(models.NormalizeTags(*in.Tags))
	}
	if in.MetaDescription != nil {
		post.MetaDescription = utils.StripTags(*in.MetaDescription)
	}
	if in.SEOKeywords != nil {
		post.SEOKeywords = utils.UniqueStrings(models.NormalizeTags(*in.SEOKeywords))
	}
	if in.IsPublished != nil {
		post.SetPublished(*in.IsPublished, s.now())
	}
	return nil
}

// Delete removes a post with its comments and likes.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id string) error {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return dbError(err, msgPostNotFound, "")
	}
	if !post.EditableBy(actor) {
		return apperror.NewForbidden("Not authorized to delete this post")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", post.ID).Error
	})
	if err != nil {
		return dbError(err, msgPostNotFound, "")
	}
	SyncCategoryPostCount(ctx, s.db, post.CategoryID)
	return nil
}

// AddComment appends an active comment and returns the post with the new comment last.
func (s *PostService) AddComment(ctx context.Context, postID, userID, content string) (*models.Post, *models.Comment, error) {
	content = utils.StripTags(content)
	if n := len([]rune(content)); n == 0 || n > maxCommentLength {
		return nil, nil, apperror.NewValidation("Validation failed",
			apperror.FieldError{Field: "content", Message: "Comment must be between 1 and 1000 characters"})
	}
	if err := s.exists(ctx, postID); err != nil {
		return nil, nil, err
	}

	comment := models.Comment{PostID: postID, UserID: userID, Content: content, IsActive: true}
	if err := s.db.WithContext(ctx).Omit("User").Create(&comment).Error; err != nil {
		return nil, nil, dbError(err, msgPostNotFound, "")
	}

	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if n := len(post.Comments); n > 0 && post.Comments[n-1].ID == comment.ID {
		comment = post.Comments[n-1]
	}
	return post, &comment, nil
}

// DeactivateComment hides a comment. Allowed for the comment owner, the post author, admins and moderators.
func (s *PostService) DeactivateComment(ctx context.Context, actor *models.User, postID, commentID string) (*models.Post, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ? AND post_id = ?", commentID, postID).Error; err != nil {
		return nil, dbError(err, msgCommentNotFound, "")
	}
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&post, "id = ?", postID).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	if comment.UserID != actor.ID && post.AuthorID != actor.ID && !actor.HasRole(models.RoleAdmin, models.RoleModerator) {
		return nil, apperror.NewForbidden("Not authorized to remove this comment")
	}

	if err := s.db.WithContext(ctx).Model(&comment).UpdateColumns(map[string]interface{}{
		"is_active":  false,
		"updated_at": s.now(),
	}).Error; err != nil {
		return nil, dbError(err, msgCommentNotFound, "")
	}
	return s.load(ctx, postID)
}

// ToggleLike adds userID to the post's likes set, or removes it when present, and rewrites likesCount.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error) {
	res := &LikeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}

		like := models.PostLike{PostID: postID, UserID: userID}
		deleted := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			res.Liked = true
		}

		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Order("created_at ASC").
			Pluck("user_id", &res.Likes).Error; err != nil {
			return err
		}
		res.LikesCount = int64(len(res.Likes))
		return tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn("likes_count", res.LikesCount).Error
	})
	if err != nil {
		return nil, dbError(err, msgPostNotFound, msgLikeConflict)
	}
	return res, nil
}

// List returns published posts, newest first, optionally filtered by category id or slug.
func (s *PostService) List(ctx context.Context, q ListQuery) (*PostPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("posts.is_published = ?", true)
	if q.Category != "" {
		query = query.Where("posts.category_id IN (?)",
			s.db.Model(&models.Category{}).Select("id").Where("id = ? OR slug = ?", q.Category, q.Category))
	}
	return s.page(ctx, query, "posts.published_at DESC, posts.id DESC", q.Page, q.Limit)
}

// Search matches q case-insensitively against title, content, excerpt and tags of published posts.
func (s *PostService) Search(ctx context.Context, q string, page, limit int) (*PostPage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.NewBadRequest("Search query is required")
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.is_published = ?", true).
		Where("(LOWER(posts.title) LIKE ? ESCAPE '!' OR LOWER(posts.content) LIKE ? ESCAPE '!' OR LOWER(posts.excerpt) LIKE ? ESCAPE '!' OR "+
			"EXISTS (SELECT 1 FROM post_tags WHERE post_tags.post_id = posts.id AND post_tags.tag LIKE ? ESCAPE '!'))",
			pattern, pattern, pattern, pattern)
	return s.page(ctx, query, "posts.published_at DESC, posts.id DESC", page, limit)
}

// Popular ranks published posts by views, then likes, then recency.
func (s *PostService) Popular(ctx context.Context, limit int) ([]models.Post, map[string]int64, error) {
	if limit < 1 {
		limit = DefaultPopularLimit
	}
	if limit > MaxPopularLimit {
		limit = MaxPopularLimit
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Category").Preload("Likes", orderedLikes).
		Where("is_published = ?", true).
		Order("view_count DESC, likes_count DESC, published_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, nil, dbError(err, msgPostNotFound, "")
	}
	counts, err := commentCounts(ctx, s.db, posts)
	if err != nil {
		return nil, nil, err
	}
	return posts, counts, nil
}

// Mine lists every post written by actor, drafts included, newest first.
func (s *PostService) Mine(ctx context.Context, actor *models.User, page, limit int) (*PostPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("posts.author_id = ?", actor.ID)
	return s.page(ctx, query, "posts.created_at DESC, posts.id DESC", page, limit)
}

// Get resolves a post by object id or slug. Drafts are only visible to their author and admins.
// A successful read records a view without waiting for it.
func (s *PostService) Get(ctx context.Context, idOrSlug string, viewer *models.User) (*models.Post, error) {
	var (
		post *models.Post
		err  error
	)
	if models.IsObjectID(idOrSlug) {
		post, err = s.loadBy(ctx, "posts.id = ?", idOrSlug)
	}
	if post == nil && (err == nil || errors.Is(err, gorm.ErrRecordNotFound)) {
		post, err = s.loadBy(ctx, "posts.slug = ?", idOrSlug)
	}
	if err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	if !post.VisibleTo(viewer) {
		return nil, apperror.NewNotFound(msgPostNotFound)
	}
	if s.views != nil {
		s.views.Record(post.ID)
	}
	return post, nil
}

func (s *PostService) page(ctx context.Context, query *gorm.DB, order string, page, limit int) (*PostPage, error) {
	page = utils.ClampPage(page)
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}

	var posts []models.Post
	if err := query.Session(&gorm.Session{}).Preload("Author").Preload("Category").Preload("Likes", orderedLikes).
		Order(order).Offset(utils.Offset(page, limit)).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}

	counts, err := commentCounts(ctx, s.db, posts)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, CommentCounts: counts, Pagination: utils.NewPagination(page, limit, total)}, nil
}

// commentCounts returns the number of active comments of each post.
func commentCounts(ctx context.Context, db *gorm.DB, posts []models.Post) (map[string]int64, error) {
	counts := make(map[string]int64, len(posts))
	if len(posts) == 0 {
		return counts, nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var rows []struct {
		PostID string
		Total  int64
	}
	if err := db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ? AND is_active = ?", ids, true).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	for _, r := range rows {
		counts[r.PostID] = r.Total
	}
	return counts, nil
}

func (s *PostService) load(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.loadBy(ctx, "posts.id = ?", id)
	if err != nil {
		return nil, dbError(err, msgPostNotFound, "")
	}
	return post, nil
}

func orderedLikes(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// loadBy fetches a post with author, category, likes and active comments in order.
func (s *PostService) loadBy(ctx context.Context, cond string, arg string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Likes", orderedLikes).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("created_at ASC, id ASC")
		}).
		Preload("Comments.User").
		Where(cond, arg).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// syncTags replaces the search index rows of a post with tags.
func syncTags(tx *gorm.DB, postID string, tags []string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.PostTag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, models.PostTag{PostID: postID, Tag: tag})
	}
	return tx.Create(&rows).Error
}

func (s *PostService) exists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return dbError(err, msgPostNotFound, "")
	}
	if n == 0 {
		return apperror.NewNotFound(msgPostNotFound)
	}
	return nil
}

func (s *PostService) ensureCategory(ctx context.Context, id string) error {
	var cat models.Category
	err := s.db.WithContext(ctx).Select("id", "is_active").First(&cat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !cat.IsActive) {
		return apperror.NewValidation(msgInvalidCategory, apperror.FieldError{Field: "category", Message: "Category does not exist"})
	}
	return dbError(err, msgInvalidCategory, "")
}

// uniqueSlug derives a slug from title, appending -1, -2, ... while another post holds it.
func (s *PostService) uniqueSlug(ctx context.Context, title, exceptID string) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 1; ; i++ {
		q := s.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
		if exceptID != "" {
			q = q.Where("id <> ?", exceptID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
