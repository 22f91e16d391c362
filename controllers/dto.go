package controllers

import (
	"strings"
	"time"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

const summaryLength = 200

type createPostRequest struct {
	Title           string   `json:"title" binding:"required,min=5,max=100"`
	Content         string   `json:"content" binding:"required,min=50"`
	Excerpt         string   `json:"excerpt" binding:"max=200"`
	FeaturedImage   string   `json:"featuredImage" binding:"max=512"`
	Category        string   `json:"category" binding:"required,len=24,hexadecimal"`
	Tags            []string `json:"tags" binding:"max=20,dive,max=20"`
	IsPublished     bool     `json:"isPublished"`
	MetaDescription string   `json:"metaDescription" binding:"max=160"`
	SEOKeywords     []string `json:"seoKeywords" binding:"max=20,dive,max=50"`
}

func (r *createPostRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	r.Excerpt = strings.TrimSpace(r.Excerpt)
	r.FeaturedImage = strings.TrimSpace(r.FeaturedImage)
	r.Category = strings.TrimSpace(r.Category)
	r.MetaDescription = strings.TrimSpace(r.MetaDescription)
}

func (r *createPostRequest) input() services.PostInput {
	in := services.PostInput{
		Title:           &r.Title,
		Content:         &r.Content,
		Excerpt:         &r.Excerpt,
		CategoryID:      &r.Category,
		IsPublished:     &r.IsPublished,
		MetaDescription: &r.MetaDescription,
	}
	if r.FeaturedImage != "" {
		in.FeaturedImage = &r.FeaturedImage
	}
	if r.Tags != nil {
		in.Tags = &r.Tags
	}
	if r.SEOKeywords != nil {
		in.SEOKeywords = &r.SEOKeywords
	}
	return in
}

// updatePostRequest is a partial update. Absent fields are left unchanged.
type updatePostRequest struct {
	Title           *string  `json:"title" binding:"omitempty,min=5,max=100"`
	Content         *string  `json:"content" binding:"omitempty,min=50"`
	Excerpt         *string  `json:"excerpt" binding:"omitempty,max=200"`
	FeaturedImage   *string  `json:"featuredImage" binding:"omitempty,max=512"`
	Category        *string  `json:"category" binding:"omitempty,len=24,hexadecimal"`
	Tags            []string `json:"tags" binding:"max=20,dive,max=20"`
	IsPublished     *bool    `json:"isPublished"`
	MetaDescription *string  `json:"metaDescription" binding:"omitempty,max=160"`
	SEOKeywords     []string `json:"seoKeywords" binding:"max=20,dive,max=50"`
}

func (r *updatePostRequest) normalize() {
	trimPtr(r.Title)
	trimPtr(r.Content)
	trimPtr(r.Excerpt)
	trimPtr(r.FeaturedImage)
	trimPtr(r.Category)
	trimPtr(r.MetaDescription)
}

func (r *updatePostRequest) input() services.PostInput {
	in := services.PostInput{
		Title:           r.Title,
		Content:         r.Content,
		Excerpt:         r.Excerpt,
		FeaturedImage:   r.FeaturedImage,
		CategoryID:      r.Category,
		IsPublished:     r.IsPublished,
		MetaDescription: r.MetaDescription,
	}
	if r.Tags != nil {
		in.Tags = &r.Tags
	}
	if r.SEOKeywords != nil {
		in.SEOKeywords = &r.SEOKeywords
	}
	return in
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

func (r *commentRequest) normalize() {
	r.Content = strings.TrimSpace(r.Content)
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50,catname"`
	Description string `json:"description" binding:"max=200"`
}

func (r *createCategoryRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type updateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50,catname"`
	Description *string `json:"description" binding:"omitempty,max=200"`
	IsActive    *bool   `json:"isActive"`
}

func (r *updateCategoryRequest) normalize() {
	trimPtr(r.Name)
	trimPtr(r.Description)
}

type updateProfileRequest struct {
	Username     *string `json:"username" binding:"omitempty,min=3,max=30,username"`
	FirstName    *string `json:"firstName" binding:"omitempty,max=50"`
	LastName     *string `json:"lastName" binding:"omitempty,max=50"`
	Bio          *string `json:"bio" binding:"omitempty,max=500"`
	ProfileImage *string `json:"profileImage" binding:"omitempty,max=512"`
}

func (r *updateProfileRequest) normalize() {
	trimPtr(r.Username)
	trimPtr(r.FirstName)
	trimPtr(r.LastName)
	trimPtr(r.Bio)
	trimPtr(r.ProfileImage)
}

// authorView is the public projection of a user embedded in posts and comments.
type authorView struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	FullName     string  `json:"fullName"`
	ProfileImage *string `json:"profileImage"`
}

func newAuthorView(u models.User) authorView {
	return authorView{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     u.FullName(),
		ProfileImage: u.ProfileImage,
	}
}

type publicUserView struct {
	authorView
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPublicUserView(u *models.User) publicUserView {
	return publicUserView{authorView: newAuthorView(*u), Bio: u.Bio, CreatedAt: u.CreatedAt}
}

type selfUserView struct {
	publicUserView
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	LastLogin time.Time `json:"lastLogin"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newSelfUserView(u *models.User) selfUserView {
	return selfUserView{
		publicUserView: newPublicUserView(u),
		Email:          u.Email,
		Role:           u.Role,
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		UpdatedAt:      u.UpdatedAt,
	}
}

type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryView struct {
	categoryRef
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	PostCount   int64     `json:"postCount"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newCategoryView(c models.Category) categoryView {
	return categoryView{
		categoryRef: categoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug},
		Description: c.Description,
		IsActive:    c.IsActive,
		PostCount:   c.PostCount,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type categoryDetailView struct {
	categoryView
	Posts []postView `json:"posts"`
}

type commentView struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	User      authorView `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func newCommentView(c models.Comment) commentView {
	return commentView{
		ID:        c.ID,
		Content:   c.Content,
		User:      newAuthorView(c.User),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// postView is the wire shape of a post in collections.
type postView struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	URL             string      `json:"url"`
	Excerpt         string      `json:"excerpt"`
	Summary         string      `json:"summary"`
	FeaturedImage   string      `json:"featuredImage"`
	Author          authorView  `json:"author"`
	Category        categoryRef `json:"category"`
	Tags            []string    `json:"tags"`
	IsPublished     bool        `json:"isPublished"`
	PublishedAt     *time.Time  `json:"publishedAt"`
	ViewCount       int64       `json:"viewCount"`
	Likes           []string    `json:"likes"`
	LikesCount      int64       `json:"likesCount"`
	CommentsCount   int64       `json:"commentsCount"`
	ReadingTime     int         `json:"readingTime"`
	MetaDescription string      `json:"metaDescription"`
	SEOKeywords     []string    `json:"seoKeywords"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func newPostView(p *models.Post, commentsCount int64) postView {
	summary := p.Excerpt
	if summary == "" {
		summary = utils.Summarize(p.Content, summaryLength)
	}
	return postView{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		URL:             p.URL(),
		Excerpt:         p.Excerpt,
		Summary:         summary,
		FeaturedImage:   p.FeaturedImage,
		Author:          newAuthorView(p.Author),
		Category:        categoryRef{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug},
		Tags:            nonNil(p.Tags),
		IsPublished:     p.IsPublished,
		PublishedAt:     p.PublishedAt,
		ViewCount:       p.ViewCount,
		Likes:           p.LikedBy(),
		LikesCount:      p.LikesCount,
		CommentsCount:   commentsCount,
		ReadingTime:     p.ReadingTime,
		MetaDescription: p.MetaDescription,
		SEOKeywords:     nonNil(p.SEOKeywords),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type postDetailView struct {
	postView
	Content  string        `json:"content"`
	Comments []commentView `json:"comments"`
}

// newPostDetailView includes content and the active comments in order.
func newPostDetailView(p *models.Post) postDetailView {
	active := p.ActiveComments()
	v := postDetailView{
		postView: newPostView(p, int64(len(active))),
		Content:  p.Content,
		Comments: make([]commentView, 0, len(active)),
	}
	for _, c := range active {
		v.Comments = append(v.Comments, newCommentView(c))
	}
	return v
}

func newPostViews(posts []models.Post, counts map[string]int64) []postView {
	out := make([]postView, 0, len(posts))
	for i := range posts {
		out = append(out, newPostView(&posts[i], counts[posts[i].ID]))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
