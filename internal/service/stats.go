package service

import (
	"context"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
)

// StatusCounts 按状态计数
type StatusCounts struct {
	Planned   int64 `json:"planned"`
	Watching  int64 `json:"watching"`
	Completed int64 `json:"completed"`
}

// TypeCounts 按类型计数
type TypeCounts struct {
	Movie int64 `json:"movie"`
	TV    int64 `json:"tv"`
}

// WatchTime 已看完条目的观看时长
type WatchTime struct {
	MovieMinutes int64  `json:"movieMinutes"`
	TVMinutes    int64  `json:"tvMinutes"`
	TotalMinutes int64  `json:"totalMinutes"`
	Movie        string `json:"movie"`
	TV           string `json:"tv"`
	Total        string `json:"total"`
}

// EpisodeStats 单集计数
type EpisodeStats struct {
	Watched        int64  `json:"watched"`
	Skipped        int64  `json:"skipped"`
	WatchedMinutes int64  `json:"watchedMinutes"`
	WatchedTime    string `json:"watchedTime"`
}

// Stats 用户统计
type Stats struct {
	TotalItems int64        `json:"totalItems"`
	ByStatus   StatusCounts `json:"byStatus"`
	ByType     TypeCounts   `json:"byType"`
	WatchTime  WatchTime    `json:"watchTime"`
	Episodes   EpisodeStats `json:"episodes"`
}

// StatsService 只读统计
type StatsService struct {
	stats *repository.StatsRepository
}

func NewStatsService(stats *repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

// Compute 汇总用户统计，since 为 nil 时统计全部
func (s *StatsService) Compute(ctx context.Context, userID int, since *time.Time) (*Stats, error) {
	mc, err := s.stats.MediaCounters(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	ec, err := s.stats.EpisodeCounters(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		ByStatus: StatusCounts{
			Planned:   mc.ByStatus[model.WatchStatusPlanned],
			Watching:  mc.ByStatus[model.WatchStatusWatching],
			Completed: mc.ByStatus[model.WatchStatusCompleted],
		},
		ByType: TypeCounts{
			Movie: mc.ByType[model.MediaTypeMovie],
			TV:    mc.ByType[model.MediaTypeTV],
		},
		Episodes: EpisodeStats{
			Watched:        ec.Watched,
			Skipped:        ec.Skipped,
			WatchedMinutes: ec.WatchedMinutes,
			WatchedTime:    utils.FormatMinutes(int(ec.WatchedMinutes)),
		},
	}
	out.TotalItems = out.ByType.Movie + out.ByType.TV

	wt := &out.WatchTime
	wt.MovieMinutes = mc.CompletedMinutes[model.MediaTypeMovie]
	wt.TVMinutes = mc.CompletedMinutes[model.MediaTypeTV]
	wt.TotalMinutes = wt.MovieMinutes + wt.TVMinutes
	wt.Movie = utils.FormatMinutes(int(wt.MovieMinutes))
	wt.TV = utils.FormatMinutes(int(wt.TVMinutes))
	wt.Total = utils.FormatMinutes(int(wt.TotalMinutes))
	return out, nil
}
