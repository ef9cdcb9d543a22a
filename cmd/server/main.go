package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/handler"
	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/middleware"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/router"
	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		logger.Infof(".env not found, using process environment")
	}

	// 加载配置
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.Init(cfg.LogDir)
	defer logger.Close()

	// 初始化数据库
	db, err := repository.InitDB(cfg)
	if err != nil {
		logger.Errorf("Database connection failed: %v", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// 初始化仓库
	repos := repository.NewRepositories(db)

	m := metrics.New()
	clk := clock.NewRealClock()

	mailer, err := service.NewMailer(cfg.SMTPURL, cfg.MailFrom)
	if err != nil {
		logger.Errorf("Mailer setup failed: %v", err)
		os.Exit(1)
	}
	if cfg.TMDBAPIKey == "" {
		logger.Warnf("TMDB_API_KEY not set, catalog requests will fail")
	}

	catalog := service.NewTMDBService(cfg, m)
	reconciler := service.NewReconciler(repos.Episode, repos.Media, m)
	stats := service.NewStatsService(repos.Stats)

	h := handler.NewHandler(handler.Deps{
		Config:    cfg,
		Clock:     clk,
		Auth:      service.NewAuthService(repos.User, mailer, cfg, clk, m),
		Watchlist: service.NewWatchlistService(repos.Media, repos.Episode, catalog, reconciler),
		Episodes:  service.NewEpisodeService(repos.Episode, catalog, reconciler, clk),
		Stats:     stats,
		Reports:   service.NewReportService(repos.Media, repos.Episode, stats, clk, m),
	})

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(repos.User, clk, m, cfg.UnverifiedRetentionDays)
	if err := cleanupSvc.Start(cfg.CleanupCron); err != nil {
		logger.Errorf("Cleanup scheduler disabled: %v", err)
	}

	// 认证接口限流：每分钟 10 次，突发 10 次
	authLimiter := middleware.NewRateLimiter(10, time.Minute, 10)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepLimiter(sweepCtx, authLimiter)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.New(cfg, h, m, authLimiter)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logger.Infof("Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down server...")

	stopSweep()
	cleanupSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Forced shutdown: %v", err)
	}

	logger.Infof("Server exited")
}

// sweepLimiter 定期清理长时间不活跃的限流记录
func sweepLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(10 * time.Minute); n > 0 {
				logger.Debugf("Rate limiter: dropped %d idle clients", n)
			}
		}
	}
}
