package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

// StatsController provides site statistics such as counts and total views.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	utils.Success(ctx, s.stats.Site(ctx.Request.Context()))
}

// GetPostStats returns views, likes and comments count for a published post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	st, err := s.stats.Post(ctx.Request.Context(), ctx.Param("idOrSlug"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, st)
}
