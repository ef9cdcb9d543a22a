package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/robfig/cron/v3"
)

// CleanupService 定时清理过期验证码、重置令牌和长期未验证的账号
type CleanupService struct {
	users     *repository.UserRepository
	clock     clock.Clock
	metrics   *metrics.Metrics
	cron      *cron.Cron
	retention time.Duration
}

// NewCleanupService 创建清理服务
func NewCleanupService(users *repository.UserRepository, clk clock.Clock, m *metrics.Metrics, retentionDays int) *CleanupService {
	return &CleanupService{
		users:     users,
		clock:     clk,
		metrics:   m,
		cron:      cron.New(),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Start 按 cron 表达式启动定时清理（默认每天凌晨 3 点）
func (s *CleanupService) Start(cronExpr string) error {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", cronExpr, err)
	}
	if _, err := s.cron.AddFunc(cronExpr, func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	logger.Infof("[CleanupService] scheduled with %q", cronExpr)
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (s *CleanupService) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 执行一次清理
func (s *CleanupService) RunOnce(ctx context.Context) {
	now := s.clock.Now().UTC()
	logger.Infof("[CleanupService] starting cleanup")

	// 1. 过期的验证码与重置令牌
	tokens, err := s.users.PurgeExpiredTokens(ctx, now)
	if err != nil {
		logger.Errorf("[CleanupService] purge expired tokens failed: %v", err)
	} else if tokens > 0 {
		logger.Infof("[CleanupService] cleared %d expired tokens", tokens)
		s.metrics.CleanupRemoved("tokens", tokens)
	}

	// 2. 超过保留期仍未验证的账号
	if s.retention <= 0 {
		return
	}
	users, err := s.users.DeleteUnverifiedBefore(ctx, now.Add(-s.retention))
	if err != nil {
		logger.Errorf("[CleanupService] delete unverified users failed: %v", err)
	} else if users > 0 {
		logger.Infof("[CleanupService] deleted %d unverified accounts", users)
		s.metrics.CleanupRemoved("users", users)
	}
}
