package service

import (
	"context"
	"strings"

	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WatchlistService 片单：目录透传、加入、更新、删除、分页
type WatchlistService struct {
	media      *repository.MediaRepository
	episodes   *repository.EpisodeRepository
	catalog    Catalog
	reconciler *Reconciler
}

func NewWatchlistService(media *repository.MediaRepository, episodes *repository.EpisodeRepository, catalog Catalog, reconciler *Reconciler) *WatchlistService {
	return &WatchlistService{media: media, episodes: episodes, catalog: catalog, reconciler: reconciler}
}

// AddInput 加入片单参数
type AddInput struct {
	CatalogID int
	Type      model.MediaType
	Status    model.WatchStatus
}

// UpdateInput 更新片单条目参数，nil 字段不修改
type UpdateInput struct {
	Status *model.WatchStatus
	Rating *int
}

// ListInput 分页查询参数
type ListInput struct {
	Status model.WatchStatus
	Type   model.MediaType
	Page   int
	Limit  int
}

// WatchlistPage 分页结果
type WatchlistPage struct {
	Items                 []*model.Media `json:"items"`
	Page                  int            `json:"page"`
	Limit                 int            `json:"limit"`
	Total                 int64          `json:"total"`
	TotalPages            int            `json:"totalPages"`
	TotalWatchTimeMinutes int            `json:"totalWatchTimeMinutes"`
	TotalWatchTime        string         `json:"totalWatchTime"`
}

// DetailsResult 目录详情及当前用户片单中的对应条目
type DetailsResult struct {
	Item  *model.CatalogItem `json:"item"`
	Entry *model.Media       `json:"watchlistEntry"`
}

// Search 透传目录搜索
func (s *WatchlistService) Search(ctx context.Context, query string, page int) (*model.CatalogPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query", "is required")
	}
	return s.catalog.Search(ctx, query, page)
}

// Trending 透传热门
func (s *WatchlistService) Trending(ctx context.Context, mediaType string) ([]model.CatalogItem, error) {
	return s.catalog.Trending(ctx, mediaType)
}

// Details 目录详情，附带片单条目（如有）
func (s *WatchlistService) Details(ctx context.Context, userID int, mediaType model.MediaType, id int) (*DetailsResult, error) {
	if !mediaType.Valid() {
		return nil, invalid("type", "must be movie or tv")
	}
	item, err := s.catalog.Details(ctx, mediaType, id)
	if err != nil {
		return nil, err
	}
	entry, err := s.media.GetByCatalogID(ctx, userID, id, mediaType)
	if err != nil {
		return nil, err
	}
	return &DetailsResult{Item: item, Entry: entry}, nil
}

// Add 加入片单：重复加入直接拒绝；保存目录快照并估算观看时长
func (s *WatchlistService) Add(ctx context.Context, userID int, in AddInput) (*model.Media, error) {
	if in.CatalogID <= 0 {
		return nil, invalid("tmdbId", "must be a positive id")
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "must be movie or tv")
	}
	if in.Status == "" {
		in.Status = model.WatchStatusPlanned
	}
	if !in.Status.Valid() {
		return nil, invalid("watchStatus", "must be planned, watching or completed")
	}

	exists, err := s.media.Exists(ctx, userID, in.CatalogID, in.Type)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	item, err := s.catalog.Details(ctx, in.Type, in.CatalogID)
	if err != nil {
		return nil, err
	}

	m := &model.Media{
		UserID:           userID,
		CatalogID:        in.CatalogID,
		MediaType:        in.Type,
		Title:            item.Title,
		Overview:         item.Overview,
		PosterPath:       item.PosterPath,
		BackdropPath:     item.BackdropPath,
		ReleaseDate:      item.ReleaseDate,
		Genres:           model.StringList(item.Genres),
		VoteAverage:      item.VoteAverage,
		VoteCount:        item.VoteCount,
		Runtime:          item.Runtime,
		EpisodeCount:     item.EpisodeCount,
		SeasonCount:      item.SeasonCount,
		WatchStatus:      in.Status,
		WatchTimeMinutes: model.EstimatedWatchTime(item),
	}
	if err := s.media.Create(ctx, m); err != nil {
		return nil, fromRepo(err)
	}

	// 之前已拉取过单集时以单集为准
	if m.MediaType == model.MediaTypeTV {
		existing, err := s.episodes.ListByShow(ctx, userID, m.CatalogID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			r, err := s.reconciler.ReconcileShow(ctx, userID, m.CatalogID)
			if err != nil {
				return nil, err
			}
			m.WatchStatus = r.Status
			m.WatchTimeMinutes = r.WatchTimeMinutes
		}
	}
	logger.Infof("Watchlist add: user=%d %s/%d %q", userID, m.MediaType, m.CatalogID, m.Title)
	return m, nil
}

// Get 获取单个条目
func (s *WatchlistService) Get(ctx context.Context, userID, id int) (*model.Media, error) {
	m, err := s.media.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// UpdateStatus 更新状态和评分；非本人条目按不存在处理
func (s *WatchlistService) UpdateStatus(ctx context.Context, userID, id int, in UpdateInput) (*model.Media, error) {
	updates := map[string]interface{}{}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, invalid("watchStatus", "must be planned, watching or completed")
		}
		updates["watch_status"] = *in.Status
	}
	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *in.Rating
	}
	if len(updates) == 0 {
		return nil, invalid("", "nothing to update: provide watchStatus or rating")
	}

	n, err := s.media.Update(ctx, userID, id, updates)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

// Remove 删除条目；剧集同时删除该用户的单集记录
func (s *WatchlistService) Remove(ctx context.Context, userID, id int) error {
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	n, err := s.media.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if m.MediaType == model.MediaTypeTV {
		removed, err := s.episodes.DeleteByShow(ctx, userID, m.CatalogID)
		if err != nil {
			return err
		}
		logger.Debugf("Removed %d episodes of show %d for user %d", removed, m.CatalogID, userID)
	}
	return nil
}

// List 分页查询，附带筛选结果的总观看时长
func (s *WatchlistService) List(ctx context.Context, userID int, in ListInput) (*WatchlistPage, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, invalid("status", "must be planned, watching or completed")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, invalid("type", "must be movie or tv")
	}
	page, limit := normalizePage(in.Page, in.Limit)

	items, total, minutes, err := s.media.List(ctx, repository.MediaFilter{
		UserID: userID,
		Status: in.Status,
		Type:   in.Type,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*model.Media{}
	}

	return &WatchlistPage{
		Items:                 items,
		Page:                  page,
		Limit:                 limit,
		Total:                 total,
		TotalPages:            int((total + int64(limit) - 1) / int64(limit)),
		TotalWatchTimeMinutes: minutes,
		TotalWatchTime:        utils.FormatMinutes(minutes),
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func validateRating(r int) error {
	if r < 1 || r > 5 {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}
