package router

import (
	"encoding/gob"
	"net/http"

	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/handler"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/middleware"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionName Session Cookie 名
const SessionName = "obscura_session"

// New 创建 gin 引擎并挂载全局中间件和路由
func New(cfg *config.Config, h *handler.Handler, m *metrics.Metrics, authLimiter *middleware.RateLimiter) *gin.Engine {
	// 注册 Session 模型
	gob.Register(model.SessionUser{})
	handler.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(m))
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.FrontendURL))

	// 启用 gzip，PDF 和指标不压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedExtensions([]string{".pdf"}),
		gzip.WithExcludedPathsRegexs([]string{`^/api/media/report`}),
	))

	// 设置 Session 中间件
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiry.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(SessionName, store))

	RegisterRoutes(r, h, m, authLimiter)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, m *metrics.Metrics, authLimiter *middleware.RateLimiter) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	limited := func(c *gin.Context) { c.Next() }
	if authLimiter != nil {
		limited = authLimiter.Middleware()
	}
	requireAuth := middleware.RequireAuth(h.Config.AppSecret)

	api := r.Group("/api")

	// ==================== 认证 ====================
	auth := api.Group("/auth")
	{
		auth.POST("/register", limited, h.Register)
		auth.POST("/verify-otp", limited, h.VerifyOTP)
		auth.POST("/resend-otp", limited, h.ResendOTP)
		auth.POST("/login", limited, h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", requireAuth, h.Me)
		auth.PUT("/me", requireAuth, h.UpdateMe)
	}

	password := api.Group("/password")
	{
		password.POST("/forgot", limited, h.ForgotPassword)
		password.GET("/reset/:token", h.VerifyResetToken)
		password.POST("/reset", h.ResetPassword)
		password.PUT("/change", requireAuth, h.ChangePassword)
	}

	// ==================== 片单与单集（需要登录）====================
	media := api.Group("/media")
	media.Use(requireAuth)
	{
		media.GET("/search", h.SearchCatalog)
		media.GET("/trending", h.Trending)
		media.GET("/details/:type/:id", h.CatalogDetails)

		media.POST("/watchlist", h.AddToWatchlist)
		media.GET("/watchlist", h.ListWatchlist)
		media.GET("/watchlist/:id", h.GetWatchlistItem)
		media.PUT("/watchlist/:id", h.UpdateWatchlistItem)
		media.DELETE("/watchlist/:id", h.RemoveFromWatchlist)

		media.GET("/tv/:showId/season/:season", h.FetchSeason)
		media.GET("/tv/:showId/episodes", h.ListShowEpisodes)
		media.PUT("/episodes/:id", h.UpdateEpisode)

		media.GET("/stats", h.Stats)
		media.GET("/report", h.DownloadReport)
	}

	// ==================== 管理后台 ====================
	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/users", h.AdminUsers)
		admin.PUT("/users/:id/approval", h.AdminSetApproval)
		admin.PUT("/users/:id/roles", h.AdminSetRoles)
	}
}
