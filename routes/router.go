package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/controllers"
	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

// Deps are the collaborators the router wires into controllers.
type Deps struct {
	Config   config.AppConfig
	DB       *gorm.DB
	Redis    *redis.Client
	Verifier middleware.TokenVerifier
	Views    services.ViewRecorder
	// AccessLogger receives one line per request. Nil falls back to utils.Logger.
	AccessLogger *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()

	accessLog := d.AccessLogger
	if accessLog == nil {
		accessLog = utils.Logger
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(accessLog))
	r.Use(utils.RecoveryWithZap(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.SecurityHeaders())

	users := services.NewUserService(d.DB, cfg.AdminSubjects)
	posts := services.NewPostService(d.DB, d.Views)
	categories := services.NewCategoryService(d.DB)
	stats := services.NewStatsService(d.DB)

	authController := controllers.NewAuthController(users)
	postController := controllers.NewPostController(posts)
	categoryController := controllers.NewCategoryController(categories)
	statsController := controllers.NewStatsController(stats)

	authRequired := middleware.AuthRequired(d.Verifier, users)
	optionalAuth := middleware.OptionalAuth(d.Verifier, users)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleModerator)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimitPerMinute))

	api.GET("/health", func(ctx *gin.Context) {
		utils.SuccessWithMessage(ctx, "API is running", gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	api.GET("/stats", statsController.GetStats)

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/search", postController.SearchPosts)
	postsGroup.GET("/popular", postController.PopularPosts)
	postsGroup.GET("/mine", authRequired, postController.ListMyPosts)
	postsGroup.GET("/:idOrSlug", optionalAuth, postController.GetPost)
	postsGroup.GET("/:idOrSlug/stats", statsController.GetPostStats)
	postsGroup.POST("", authRequired, middleware.PostCreationLimit(d.Redis, cfg.CreatePostPerHour), postController.CreatePost)
	postsGroup.PUT("/:id", authRequired, postController.UpdatePost)
	postsGroup.DELETE("/:id", authRequired, postController.DeletePost)
	postsGroup.POST("/:id/comments", authRequired, postController.CreateComment)
	postsGroup.DELETE("/:id/comments/:commentId", authRequired, postController.DeleteComment)
	postsGroup.POST("/:id/like", authRequired, postController.ToggleLike)

	categoriesGroup := api.Group("/categories")
	categoriesGroup.GET("", categoryController.ListCategories)
	categoriesGroup.GET("/:idOrSlug", categoryController.GetCategory)
	categoriesGroup.POST("", authRequired, staff, categoryController.CreateCategory)
	categoriesGroup.PUT("/:id", authRequired, staff, categoryController.UpdateCategory)
	categoriesGroup.DELETE("/:id", authRequired, adminOnly, categoryController.DeleteCategory)

	authGroup := api.Group("/auth")
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PUT("/profile", authRequired, authController.UpdateProfile)

	api.GET("/users/:username", authController.GetUserPublicByUsername)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Fail(ctx, apperror.NewNotFound("Route "+ctx.Request.URL.Path+" not found"))
	})

	return r
}
