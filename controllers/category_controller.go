package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

// CategoryController manages categories.
type CategoryController struct {
	categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{categories: categories}
}

// ListCategories returns active categories with their published post counts.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	cats, err := c.categories.List(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	items := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		items = append(items, newCategoryView(cat))
	}
	utils.List(ctx, items, len(items), nil)
}

// GetCategory returns a category by id or slug with its recent posts.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	detail, err := c.categories.Get(ctx.Request.Context(), ctx.Param("idOrSlug"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, categoryDetailView{
		categoryView: newCategoryView(detail.Category),
		Posts:        newPostViews(detail.Posts, detail.CommentCounts),
	})
}

func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req createCategoryRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	cat, err := c.categories.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), services.CategoryInput{
		Name:        &req.Name,
		Description: &req.Description,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, "Category created successfully", newCategoryView(*cat))
}

func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	var req updateCategoryRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	cat, err := c.categories.Update(ctx.Request.Context(), ctx.Param("id"), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Category updated successfully", newCategoryView(*cat))
}

func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	if err := c.categories.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Category deleted successfully", nil)
}
