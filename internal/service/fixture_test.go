package service

import (
	"context"
	"testing"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos     *repository.Repositories
	catalog   *testutil.FakeCatalog
	mailer    *testutil.RecordingMailer
	clock     *clock.MockClock
	cfg       *config.Config
	auth      *AuthService
	watchlist *WatchlistService
	episodes  *EpisodeService
	stats     *StatsService
	reports   *ReportService
}

func testConfig() *config.Config {
	return &config.Config{
		OTPTTL:        10 * time.Minute,
		ResetTokenTTL: 60 * time.Minute,
		AutoApprove:   true,
		FrontendURL:   "http://localhost:5173",
	}
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	repos := testutil.NewTestRepos(t)
	catalog := testutil.NewFakeCatalog()
	mailer := &testutil.RecordingMailer{}
	clk := clock.NewMockClock(time.Now().UTC())

	reconciler := NewReconciler(repos.Episode, repos.Media, nil)
	stats := NewStatsService(repos.Stats)
	return &fixture{
		repos:     repos,
		catalog:   catalog,
		mailer:    mailer,
		clock:     clk,
		cfg:       cfg,
		auth:      NewAuthService(repos.User, mailer, cfg, clk, nil),
		watchlist: NewWatchlistService(repos.Media, repos.Episode, catalog, reconciler),
		episodes:  NewEpisodeService(repos.Episode, catalog, reconciler, clk),
		stats:     stats,
		reports:   NewReportService(repos.Media, repos.Episode, stats, clk, nil),
	}
}

// verifiedUser 注册并完成验证
func (f *fixture) verifiedUser(t *testing.T, email string) *model.User {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Tester", email, "password123")
	require.NoError(t, err)
	user, err := f.auth.VerifyOTP(ctx, email, f.mailer.LastOTP(email))
	require.NoError(t, err)
	return user
}

func statusPtr(s model.WatchStatus) *model.WatchStatus        { return &s }
func episodeStatusPtr(s model.EpisodeStatus) *model.EpisodeStatus { return &s }
func intPtr(i int) *int                                        { return &i }
