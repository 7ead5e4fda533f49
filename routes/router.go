package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/config"
	"github.com/cppla/toolshed/controllers"
	"github.com/cppla/toolshed/middleware"
	"github.com/cppla/toolshed/services"
	"github.com/cppla/toolshed/utils"
)

// Deps are the process level resources the router builds its services from.
type Deps struct {
	Config config.AppConfig
	DB     *gorm.DB
	// Assets is the public asset root; uploads live under Config.UploadDir inside it.
	Assets afero.Fs
	// Redis is optional; without it revoked tokens and captchas are kept in memory.
	Redis  *redis.Client
	Mailer utils.Mailer
	Logger *zap.Logger
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

	log := d.Logger
	if log == nil {
		log = utils.Logger
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	// access log goes to its own rolling file when configured
	accessLog := log
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
			accessLog = gl
		} else {
			log.Warn("gin access log disabled", zap.String("path", cfg.GinPath), zap.Error(err))
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// browsers refuse credentialed responses for "*", so the request origin is echoed back
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	store := assets.NewStore(d.Assets, cfg.UploadDir)
	cache := assets.NewCache(d.Assets, assets.WithLogger(log))
	blacklist := utils.NewTokenBlacklist(d.Redis)
	captcha := utils.NewCaptcha(utils.NewRedisCaptchaStore(d.Redis, 10*time.Minute))

	toolService := services.NewToolService(d.DB, store, cache, log)
	uploadService := services.NewUploadService(store, toolService, cfg.MaxImages, log)
	authService := services.NewAuthService(d.DB, d.Mailer, cfg.AppBaseURL, log)

	authController := controllers.NewAuthController(authService, captcha, blacklist, cfg)
	toolController := controllers.NewToolController(toolService, uploadService, cfg.MaxUploadBytes())

	r.Use(middleware.CheckUser(cfg.JWTSecret, blacklist))

	uploads := r.Group("/uploads", middleware.AssetHeaders())
	uploads.StaticFS("/", store.HTTP())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/register", authController.Register)
	authGroup.GET("/verify", authController.Verify)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", authController.Me)

	toolsGroup := api.Group("/tools")
	toolsGroup.GET("/search", toolController.Search)
	toolsGroup.GET("/:id", toolController.Get)
	toolsGroup.POST("", toolController.Create)
	toolsGroup.DELETE("/:id", toolController.Delete)

	api.GET("/users/me/tools", toolController.ListMine)
	api.GET("/users/:id/tools", toolController.ListByUser)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
