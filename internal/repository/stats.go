package repository

import (
	"context"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"gorm.io/gorm"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// MediaCounters 片单分组计数
type MediaCounters struct {
	ByStatus map[model.WatchStatus]int64
	ByType   map[model.MediaType]int64
	// 仅统计已看完条目
	CompletedMinutes map[model.MediaType]int64
}

// EpisodeCounters 单集计数
type EpisodeCounters struct {
	Watched        int64
	Skipped        int64
	WatchedMinutes int64
}

func (r *StatsRepository) mediaScope(ctx context.Context, userID int, since *time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Media{}).Where("user_id = ?", userID)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	return q
}

// MediaCounters 按状态、类型分组统计
func (r *StatsRepository) MediaCounters(ctx context.Context, userID int, since *time.Time) (*MediaCounters, error) {
	out := &MediaCounters{
		ByStatus:         map[model.WatchStatus]int64{},
		ByType:           map[model.MediaType]int64{},
		CompletedMinutes: map[model.MediaType]int64{},
	}

	var byStatus []struct {
		WatchStatus model.WatchStatus
		Count       int64
	}
	if err := r.mediaScope(ctx, userID, since).
		Select("watch_status, COUNT(*) AS count").
		Group("watch_status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		out.ByStatus[row.WatchStatus] = row.Count
	}

	var byType []struct {
		MediaType model.MediaType
		Count     int64
		Minutes   int64
	}
	if err := r.mediaScope(ctx, userID, since).
		Select("media_type, COUNT(*) AS count, COALESCE(SUM(CASE WHEN watch_status = ? THEN watch_time_minutes ELSE 0 END), 0) AS minutes", model.WatchStatusCompleted).
		Group("media_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		out.ByType[row.MediaType] = row.Count
		out.CompletedMinutes[row.MediaType] = row.Minutes
	}
	return out, nil
}

// EpisodeCounters 统计已看/跳过单集及已看时长
func (r *StatsRepository) EpisodeCounters(ctx context.Context, userID int, since *time.Time) (*EpisodeCounters, error) {
	var rows []struct {
		Status  model.EpisodeStatus
		Count   int64
		Minutes int64
	}
	q := r.db.WithContext(ctx).Model(&model.Episode{}).
		Where("user_id = ? AND status IN ?", userID, []model.EpisodeStatus{model.EpisodeStatusWatched, model.EpisodeStatusSkipped})
	if since != nil {
		// 跳过的单集没有观看时间，按更新时间过滤
		q = q.Where("(watched_at >= ? OR (status = ? AND updated_at >= ?))", *since, model.EpisodeStatusSkipped, *since)
	}
	if err := q.Select("status, COUNT(*) AS count, COALESCE(SUM(runtime), 0) AS minutes").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := &EpisodeCounters{}
	for _, row := range rows {
		switch row.Status {
		case model.EpisodeStatusWatched:
			out.Watched = row.Count
			out.WatchedMinutes = row.Minutes
		case model.EpisodeStatusSkipped:
			out.Skipped = row.Count
		}
	}
	return out, nil
}
