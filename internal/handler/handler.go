package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/middleware"
	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// Deps Handler 依赖
type Deps struct {
	Config    *config.Config
	Clock     clock.Clock
	Auth      *service.AuthService
	Watchlist *service.WatchlistService
	Episodes  *service.EpisodeService
	Stats     *service.StatsService
	Reports   *service.ReportService
}

// Handler HTTP 处理器
type Handler struct {
	Config    *config.Config
	clock     clock.Clock
	auth      *service.AuthService
	watchlist *service.WatchlistService
	episodes  *service.EpisodeService
	stats     *service.StatsService
	reports   *service.ReportService
}

// NewHandler 创建处理器
func NewHandler(d Deps) *Handler {
	clk := d.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Handler{
		Config:    d.Config,
		clock:     clk,
		auth:      d.Auth,
		watchlist: d.Watchlist,
		episodes:  d.Episodes,
		stats:     d.Stats,
		reports:   d.Reports,
	}
}

// respondError 把服务层错误映射为统一响应，未知错误只记录日志不外泄
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.BadRequest(c, vErr.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrInvalidResetToken):
		utils.BadRequest(c, rootMessage(err))
	case errors.Is(err, service.ErrInvalidCredentials):
		utils.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrNotApproved):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrThrottled):
		utils.Error(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrCatalogUnavailable):
		logger.Errorf("[%s %s] %v", c.Request.Method, c.FullPath(), err)
		utils.InternalServerError(c, service.ErrCatalogUnavailable.Error())
	case errors.Is(err, service.ErrMailDelivery):
		logger.Errorf("[%s %s] %v", c.Request.Method, c.FullPath(), err)
		utils.InternalServerError(c, service.ErrMailDelivery.Error())
	default:
		logger.Errorf("[%s %s] unexpected error: %v", c.Request.Method, c.FullPath(), err)
		utils.InternalServerError(c, "")
	}
}

// rootMessage 只返回哨兵错误本身的文案
func rootMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrDuplicate, service.ErrInvalidOTP, service.ErrOTPExpired,
		service.ErrAlreadyVerified, service.ErrInvalidResetToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// paramInt 读取正整数路径参数，失败时已写入 400
func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		utils.BadRequest(c, name+": must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// currentUserID 当前登录用户；RequireAuth 之后总是非零
func currentUserID(c *gin.Context) int {
	return middleware.GetUserID(c)
}
