package service

import (
	"context"

	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
)

// Reconciliation 由单集推导出的剧集汇总
type Reconciliation struct {
	Status           model.WatchStatus `json:"watchStatus"`
	WatchTimeMinutes int               `json:"watchTimeMinutes"`
	Watched          int               `json:"watchedEpisodes"`
	Total            int               `json:"totalEpisodes"`
}

// Reconcile 已看单集时长求和；0 集已看为 planned，全部已看为 completed，其余为 watching。
// 没有任何单集时为 planned。
func Reconcile(episodes []*model.Episode) Reconciliation {
	r := Reconciliation{Status: model.WatchStatusPlanned, Total: len(episodes)}
	for _, ep := range episodes {
		if ep.Status != model.EpisodeStatusWatched {
			continue
		}
		r.Watched++
		r.WatchTimeMinutes += ep.Runtime
	}

	switch {
	case r.Total == 0 || r.Watched == 0:
		r.Status = model.WatchStatusPlanned
	case r.Watched == r.Total:
		r.Status = model.WatchStatusCompleted
	default:
		r.Status = model.WatchStatusWatching
	}
	return r
}

// Reconciler 把汇总结果写回片单条目
type Reconciler struct {
	episodes *repository.EpisodeRepository
	media    *repository.MediaRepository
	metrics  *metrics.Metrics
}

func NewReconciler(episodes *repository.EpisodeRepository, media *repository.MediaRepository, m *metrics.Metrics) *Reconciler {
	return &Reconciler{episodes: episodes, media: media, metrics: m}
}

// ReconcileShow 重新计算 (user, show) 的状态与时长；用户未收藏该剧时只返回结果
func (r *Reconciler) ReconcileShow(ctx context.Context, userID, showID int) (Reconciliation, error) {
	episodes, err := r.episodes.ListByShow(ctx, userID, showID)
	if err != nil {
		return Reconciliation{}, err
	}
	result := Reconcile(episodes)

	n, err := r.media.SetAggregate(ctx, userID, showID, result.Status, result.WatchTimeMinutes)
	if err != nil {
		return result, err
	}
	if n == 0 {
		logger.Debugf("Reconcile: show %d not in watchlist of user %d", showID, userID)
	}
	r.metrics.Reconciled(string(result.Status))
	return result, nil
}
