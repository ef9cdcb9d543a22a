package service

import (
	"context"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
)

// EpisodeService 单集拉取与状态更新
type EpisodeService struct {
	episodes   *repository.EpisodeRepository
	catalog    Catalog
	reconciler *Reconciler
	clock      clock.Clock
}

func NewEpisodeService(episodes *repository.EpisodeRepository, catalog Catalog, reconciler *Reconciler, clk clock.Clock) *EpisodeService {
	return &EpisodeService{episodes: episodes, catalog: catalog, reconciler: reconciler, clock: clk}
}

// EpisodeUpdateInput nil 字段不修改
type EpisodeUpdateInput struct {
	Status *model.EpisodeStatus
	Rating *int
}

// EpisodeUpdateResult 更新后的单集及剧集汇总
type EpisodeUpdateResult struct {
	Episode *model.Episode `json:"episode"`
	Show    Reconciliation `json:"show"`
}

// FetchSeason 从目录拉取一季并写入；重复调用只刷新目录字段
func (s *EpisodeService) FetchSeason(ctx context.Context, userID, showID, season int) ([]*model.Episode, error) {
	if showID <= 0 {
		return nil, invalid("showId", "must be a positive id")
	}
	if season < 0 {
		return nil, invalid("season", "must not be negative")
	}

	cs, err := s.catalog.Season(ctx, showID, season)
	if err != nil {
		return nil, err
	}

	rows := make([]*model.Episode, 0, len(cs.Episodes))
	for _, ep := range cs.Episodes {
		runtime := ep.Runtime
		if runtime <= 0 {
			runtime = model.DefaultEpisodeRuntime
		}
		rows = append(rows, &model.Episode{
			UserID:        userID,
			ShowID:        showID,
			SeasonNumber:  season,
			EpisodeNumber: ep.EpisodeNumber,
			Title:         ep.Title,
			AirDate:       ep.AirDate,
			Overview:      ep.Overview,
			Runtime:       runtime,
			StillPath:     ep.StillPath,
			Status:        model.EpisodeStatusUnwatched,
		})
	}
	before, err := s.episodes.ListBySeason(ctx, userID, showID, season)
	if err != nil {
		return nil, err
	}
	if err := s.episodes.UpsertCatalogFields(ctx, rows); err != nil {
		return nil, err
	}
	after, err := s.episodes.ListBySeason(ctx, userID, showID, season)
	if err != nil {
		return nil, err
	}

	// 新增了单集，剧集汇总需要重算
	if len(after) > len(before) {
		if _, err := s.reconciler.ReconcileShow(ctx, userID, showID); err != nil {
			return nil, err
		}
	}
	return after, nil
}

// ListShow 列出用户在某剧下已有的单集
func (s *EpisodeService) ListShow(ctx context.Context, userID, showID int) ([]*model.Episode, error) {
	return s.episodes.ListByShow(ctx, userID, showID)
}

// UpdateStatus 更新单集状态/评分，随后同步汇总所属剧集
func (s *EpisodeService) UpdateStatus(ctx context.Context, userID, id int, in EpisodeUpdateInput) (*EpisodeUpdateResult, error) {
	ep, err := s.episodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, ErrNotFound
	}

	updates := map[string]interface{}{}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, invalid("status", "must be unwatched, watched or skipped")
		}
		updates["status"] = *in.Status
		if *in.Status == model.EpisodeStatusWatched {
			updates["watched_at"] = s.clock.Now().UTC()
		} else {
			updates["watched_at"] = nil
		}
	}
	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *in.Rating
	}
	if len(updates) == 0 {
		return nil, invalid("", "nothing to update: provide status or rating")
	}

	n, err := s.episodes.Update(ctx, userID, id, updates)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	show, err := s.reconciler.ReconcileShow(ctx, userID, ep.ShowID)
	if err != nil {
		return nil, err
	}

	updated, err := s.episodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &EpisodeUpdateResult{Episode: updated, Show: show}, nil
}
