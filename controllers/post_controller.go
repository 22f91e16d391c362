package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

// PostController manages posts, their comments and likes.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns published posts, optionally filtered by category id or slug.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, err := p.posts.List(ctx.Request.Context(), services.ListQuery{
		Category: ctx.Query("category"),
		Page:     utils.ParsePage(ctx.Query("page")),
		Limit:    utils.ParseLimit(ctx.Query("limit"), services.DefaultPageLimit, services.MaxPageLimit),
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := newPostViews(page.Posts, page.CommentCounts)
	utils.List(ctx, items, len(items), &page.Pagination)
}

// SearchPosts matches the q parameter against published posts.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	q := ctx.Query("q")
	page, err := p.posts.Search(ctx.Request.Context(), q,
		utils.ParsePage(ctx.Query("page")),
		utils.ParseLimit(ctx.Query("limit"), services.DefaultPageLimit, services.MaxPageLimit),
	)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := newPostViews(page.Posts, page.CommentCounts)
	count := len(items)
	utils.Respond(ctx, http.StatusOK, utils.Envelope{
		Success:    true,
		Data:       items,
		Count:      &count,
		Pagination: &page.Pagination,
		Query:      q,
	})
}

// PopularPosts ranks published posts by views.
func (p *PostController) PopularPosts(ctx *gin.Context) {
	limit := utils.ParseLimit(ctx.Query("limit"), services.DefaultPopularLimit, services.MaxPopularLimit)
	posts, counts, err := p.posts.Popular(ctx.Request.Context(), limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := newPostViews(posts, counts)
	utils.List(ctx, items, len(items), nil)
}

// ListMyPosts returns the caller's posts, drafts included.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	page, err := p.posts.Mine(ctx.Request.Context(), middleware.CurrentUser(ctx),
		utils.ParsePage(ctx.Query("page")),
		utils.ParseLimit(ctx.Query("limit"), services.DefaultPageLimit, services.MaxPageLimit),
	)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := newPostViews(page.Posts, page.CommentCounts)
	utils.List(ctx, items, len(items), &page.Pagination)
}

// GetPost returns a single post by id or slug, with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.Get(ctx.Request.Context(), ctx.Param("idOrSlug"), middleware.CurrentUser(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, newPostDetailView(post))
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	post, err := p.posts.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	message := services.MsgPostDraft
	if post.IsPublished {
		message = services.MsgPostPublished
	}
	utils.Created(ctx, message, newPostDetailView(post))
}

// UpdatePost applies a partial update. Only the author or an admin may update.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req updatePostRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	post, err := p.posts.Update(ctx.Request.Context(), middleware.CurrentUser(ctx), ctx.Param("id"), req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Post updated successfully", newPostDetailView(post))
}

// DeletePost removes a post with its comments and likes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	if err := p.posts.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), ctx.Param("id")); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Post deleted successfully", nil)
}

// CreateComment appends a comment and returns the updated post along with the new comment.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req commentRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	post, comment, err := p.posts.AddComment(ctx.Request.Context(), ctx.Param("id"), middleware.CurrentUser(ctx).ID, req.Content)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, "Comment added successfully", gin.H{
		"post":    newPostDetailView(post),
		"comment": newCommentView(*comment),
	})
}

// DeleteComment hides a comment from the post.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	post, err := p.posts.DeactivateComment(ctx.Request.Context(), middleware.CurrentUser(ctx), ctx.Param("id"), ctx.Param("commentId"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Comment removed successfully", newPostDetailView(post))
}

// ToggleLike likes the post, or unlikes it when the caller already did.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	res, err := p.posts.ToggleLike(ctx.Request.Context(), ctx.Param("id"), middleware.CurrentUser(ctx).ID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Like updated successfully", gin.H{
		"liked":      res.Liked,
		"likes":      nonNil(res.Likes),
		"likesCount": res.LikesCount,
	})
}
