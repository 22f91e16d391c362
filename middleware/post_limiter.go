package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/utils"
)

// PostCreationLimit caps posts created per user per hour. rdb may be nil, in which case counters stay in memory.
func PostCreationLimit(rdb *redis.Client, perHour int) gin.HandlerFunc {
	counter := utils.NewWindowCounter(rdb, "ratelimit:posts", perHour, time.Hour)
	return func(ctx *gin.Context) {
		key := ctx.ClientIP()
		if user := CurrentUser(ctx); user != nil {
			key = user.ID
		}
		if !counter.Allow(ctx.Request.Context(), key) {
			utils.Fail(ctx, apperror.NewRateLimited("Too many posts created, please try again later."))
			return
		}
		ctx.Next()
	}
}
