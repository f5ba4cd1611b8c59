package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/controllers"
	"github.com/cppla/storyvault/middleware"
	"github.com/cppla/storyvault/services"
	"github.com/cppla/storyvault/utils"
)

// Dependencies are the collaborators the router wires into controllers.
type Dependencies struct {
	Config config.AppConfig
	Posts  *services.PostService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	postController := controllers.NewPostController(deps.Posts, controllers.PostControllerOptions{
		CaptchaEnabled:  cfg.CaptchaEnabled,
		DefaultPageSize: cfg.PostsPageSize,
		CacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
	})
	statsController := controllers.NewStatsController(deps.Posts)
	configController := controllers.NewConfigController(cfg.CaptchaEnabled, cfg.PostsPageSize)

	writeLimit := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute).Middleware()

	api := r.Group("/api/v1")
	api.GET("/config", configController.GetPublicConfig)
	api.GET("/stats", statsController.GetStats)
	api.GET("/captcha", postController.Captcha)

	posts := api.Group("/posts")
	posts.GET("", postController.ListPosts)
	posts.POST("", writeLimit, postController.CreatePost)
	posts.GET("/edit/:token", postController.GetEditPost)
	posts.PUT("/edit/:token", writeLimit, postController.UpdatePost)
	posts.GET("/delete/:token", postController.GetDeletePost)
	posts.POST("/delete/:token", writeLimit, postController.DeletePost)
	posts.DELETE("/delete/:token", writeLimit, postController.DeletePost)

	r.Static("/static", "./static")

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		// Management links (/post/edit/:token, /post/delete/:token) are frontend routes.
		if _, err := os.Stat("./static/index.html"); err != nil {
			utils.Error(ctx, http.StatusNotFound, 40400, "not found")
			return
		}
		ctx.Status(http.StatusOK)
		ctx.File("./static/index.html")
	})

	return r
}
