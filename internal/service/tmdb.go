package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"golang.org/x/sync/singleflight"
)

// Catalog 影视元数据来源
type Catalog interface {
	Search(ctx context.Context, query string, page int) (*model.CatalogPage, error)
	Details(ctx context.Context, mediaType model.MediaType, id int) (*model.CatalogItem, error)
	Season(ctx context.Context, showID, season int) (*model.CatalogSeason, error)
	Trending(ctx context.Context, mediaType string) ([]model.CatalogItem, error)
}

// TMDBService TMDB v3 接口适配，统一电影/剧集两种返回结构
type TMDBService struct {
	client       *utils.HTTPClient
	apiKey       string
	baseURL      string
	imageBaseURL string
	metrics      *metrics.Metrics
	group        singleflight.Group

	pages    *utils.TTLCache[*model.CatalogPage]
	items    *utils.TTLCache[*model.CatalogItem]
	seasons  *utils.TTLCache[*model.CatalogSeason]
	trending *utils.TTLCache[[]model.CatalogItem]
}

func NewTMDBService(cfg *config.Config, m *metrics.Metrics) *TMDBService {
	return &TMDBService{
		client:       utils.NewHTTPClient(cfg.CatalogTimeout),
		apiKey:       cfg.TMDBAPIKey,
		baseURL:      cfg.TMDBBaseURL,
		imageBaseURL: cfg.TMDBImageBaseURL,
		metrics:      m,
		pages:        utils.NewTTLCache[*model.CatalogPage](cfg.CatalogCacheSize, cfg.CatalogCacheTTL),
		items:        utils.NewTTLCache[*model.CatalogItem](cfg.CatalogCacheSize, cfg.CatalogCacheTTL),
		seasons:      utils.NewTTLCache[*model.CatalogSeason](cfg.CatalogCacheSize, cfg.CatalogCacheTTL),
		trending:     utils.NewTTLCache[[]model.CatalogItem](16, cfg.CatalogCacheTTL),
	}
}

// TMDB 原始结构

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbResult struct {
	ID            int     `json:"id"`
	MediaType     string  `json:"media_type"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	OriginalName  string  `json:"original_name"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`

	// 详情接口才有
	Runtime          int         `json:"runtime"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	Genres           []tmdbGenre `json:"genres"`
}

type tmdbPage struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []tmdbResult `json:"results"`
}

type tmdbEpisode struct {
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	AirDate       string  `json:"air_date"`
	Overview      string  `json:"overview"`
	Runtime       *int    `json:"runtime"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

type tmdbSeason struct {
	SeasonNumber int           `json:"season_number"`
	Name         string        `json:"name"`
	Overview     string        `json:"overview"`
	AirDate      string        `json:"air_date"`
	PosterPath   string        `json:"poster_path"`
	Episodes     []tmdbEpisode `json:"episodes"`
}

// Search 多类型搜索，只保留电影和剧集
func (s *TMDBService) Search(ctx context.Context, query string, page int) (*model.CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("search:%s:%d", query, page)
	if cached, ok := s.pages.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cached, nil
	}
	s.metrics.CacheLookup(false)

	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw tmdbPage
		params := url.Values{}
		params.Set("query", query)
		params.Set("page", strconv.Itoa(page))
		params.Set("include_adult", "false")
		if err := s.get(ctx, "search", "/search/multi", params, &raw); err != nil {
			return nil, err
		}

		out := &model.CatalogPage{
			Page:         raw.Page,
			TotalPages:   raw.TotalPages,
			TotalResults: raw.TotalResults,
			Results:      make([]model.CatalogItem, 0, len(raw.Results)),
		}
		for i := range raw.Results {
			mt := model.MediaType(raw.Results[i].MediaType)
			if !mt.Valid() {
				continue
			}
			out.Results = append(out.Results, *s.normalize(&raw.Results[i], mt))
		}
		s.pages.Set(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.CatalogPage), nil
}

// Details 电影或剧集详情
func (s *TMDBService) Details(ctx context.Context, mediaType model.MediaType, id int) (*model.CatalogItem, error) {
	if !mediaType.Valid() {
		return nil, invalid("type", "must be movie or tv")
	}
	key := fmt.Sprintf("details:%s:%d", mediaType, id)
	if cached, ok := s.items.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cached, nil
	}
	s.metrics.CacheLookup(false)

	// 使用 singleflight 避免并发重复请求
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw tmdbResult
		if err := s.get(ctx, "details", fmt.Sprintf("/%s/%d", mediaType, id), nil, &raw); err != nil {
			return nil, err
		}
		item := s.normalize(&raw, mediaType)
		s.items.Set(key, item)
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.CatalogItem), nil
}

// Season 某季的单集列表
func (s *TMDBService) Season(ctx context.Context, showID, season int) (*model.CatalogSeason, error) {
	key := fmt.Sprintf("season:%d:%d", showID, season)
	if cached, ok := s.seasons.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cached, nil
	}
	s.metrics.CacheLookup(false)

	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw tmdbSeason
		if err := s.get(ctx, "season", fmt.Sprintf("/tv/%d/season/%d", showID, season), nil, &raw); err != nil {
			return nil, err
		}
		out := &model.CatalogSeason{
			ShowID:       showID,
			SeasonNumber: season,
			Name:         raw.Name,
			Overview:     raw.Overview,
			AirDate:      raw.AirDate,
			PosterPath:   raw.PosterPath,
			Episodes:     make([]model.CatalogEpisode, 0, len(raw.Episodes)),
		}
		for _, ep := range raw.Episodes {
			runtime := model.DefaultEpisodeRuntime
			if ep.Runtime != nil && *ep.Runtime > 0 {
				runtime = *ep.Runtime
			}
			out.Episodes = append(out.Episodes, model.CatalogEpisode{
				SeasonNumber:  season,
				EpisodeNumber: ep.EpisodeNumber,
				Title:         ep.Name,
				AirDate:       ep.AirDate,
				Overview:      ep.Overview,
				Runtime:       runtime,
				StillPath:     ep.StillPath,
				VoteAverage:   ep.VoteAverage,
			})
		}
		s.seasons.Set(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.CatalogSeason), nil
}

// Trending 本周热门，mediaType 为 movie / tv / all
func (s *TMDBService) Trending(ctx context.Context, mediaType string) ([]model.CatalogItem, error) {
	if mediaType == "" {
		mediaType = "all"
	}
	if mediaType != "all" && !model.MediaType(mediaType).Valid() {
		return nil, invalid("type", "must be movie, tv or all")
	}
	key := "trending:" + mediaType
	if cached, ok := s.trending.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cached, nil
	}
	s.metrics.CacheLookup(false)

	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw tmdbPage
		if err := s.get(ctx, "trending", fmt.Sprintf("/trending/%s/week", mediaType), nil, &raw); err != nil {
			return nil, err
		}
		out := make([]model.CatalogItem, 0, len(raw.Results))
		for i := range raw.Results {
			mt := model.MediaType(raw.Results[i].MediaType)
			if !mt.Valid() {
				mt = model.MediaType(mediaType)
			}
			if !mt.Valid() {
				continue
			}
			out = append(out, *s.normalize(&raw.Results[i], mt))
		}
		s.trending.Set(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]model.CatalogItem), nil
}

// get 调用 TMDB，任何失败都包装为 ErrCatalogUnavailable
func (s *TMDBService) get(ctx context.Context, endpoint, path string, params url.Values, target interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", s.apiKey)
	params.Set("language", "en-US")

	start := time.Now()
	err := s.client.GetJSON(ctx, s.baseURL+path+"?"+params.Encode(), target)
	s.metrics.ObserveCatalog(endpoint, err, time.Since(start))
	if err != nil {
		logger.Warnf("[TMDB] %s %s failed: %v", endpoint, path, err)
		return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, endpoint, err)
	}
	return nil
}

// normalize 把电影/剧集两种结构统一为 CatalogItem，并补全缺省时长
func (s *TMDBService) normalize(r *tmdbResult, mediaType model.MediaType) *model.CatalogItem {
	item := &model.CatalogItem{
		ID:           r.ID,
		Type:         mediaType,
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		VoteAverage:  r.VoteAverage,
		VoteCount:    r.VoteCount,
		PosterURL:    s.imageURL("w500", r.PosterPath),
		BackdropURL:  s.imageURL("w1280", r.BackdropPath),
	}
	for _, g := range r.Genres {
		item.Genres = append(item.Genres, g.Name)
	}

	switch mediaType {
	case model.MediaTypeTV:
		item.Title = r.Name
		item.OriginalTitle = r.OriginalName
		item.ReleaseDate = r.FirstAirDate
		item.EpisodeCount = r.NumberOfEpisodes
		item.SeasonCount = r.NumberOfSeasons
		item.Runtime = model.DefaultEpisodeRuntime
		for _, rt := range r.EpisodeRunTime {
			if rt > 0 {
				item.Runtime = rt
				break
			}
		}
	default:
		item.Title = r.Title
		item.OriginalTitle = r.OriginalTitle
		item.ReleaseDate = r.ReleaseDate
		item.Runtime = r.Runtime
		if item.Runtime <= 0 {
			item.Runtime = model.DefaultMovieRuntime
		}
	}
	return item
}

func (s *TMDBService) imageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", s.imageBaseURL, size, path)
}
