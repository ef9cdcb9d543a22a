package model

import "fmt"

// CatalogItem 统一后的电影/剧集条目（来自 TMDB）
type CatalogItem struct {
	ID            int       `json:"id"`
	Type          MediaType `json:"type"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"originalTitle,omitempty"`
	Overview      string    `json:"overview"`
	PosterPath    string    `json:"posterPath"`
	BackdropPath  string    `json:"backdropPath"`
	PosterURL     string    `json:"posterUrl,omitempty"`
	BackdropURL   string    `json:"backdropUrl,omitempty"`
	ReleaseDate   string    `json:"releaseDate"`
	VoteAverage   float64   `json:"voteAverage"`
	VoteCount     int       `json:"voteCount"`
	Genres        []string  `json:"genres,omitempty"`

	// 电影为片长，剧集为单集时长（分钟），已做兜底
	Runtime      int `json:"runtime"`
	EpisodeCount int `json:"episodeCount,omitempty"`
	SeasonCount  int `json:"seasonCount,omitempty"`
}

// CatalogPage 搜索分页结果
type CatalogPage struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
	TotalResults int           `json:"totalResults"`
	Results      []CatalogItem `json:"results"`
}

// CatalogEpisode 上游单集信息
type CatalogEpisode struct {
	SeasonNumber  int     `json:"seasonNumber"`
	EpisodeNumber int     `json:"episodeNumber"`
	Title         string  `json:"title"`
	AirDate       string  `json:"airDate"`
	Overview      string  `json:"overview"`
	Runtime       int     `json:"runtime"`
	StillPath     string  `json:"stillPath"`
	VoteAverage   float64 `json:"voteAverage"`
}

// CatalogSeason 上游季信息
type CatalogSeason struct {
	ShowID       int              `json:"showId"`
	SeasonNumber int              `json:"seasonNumber"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"airDate"`
	PosterPath   string           `json:"posterPath"`
	Episodes     []CatalogEpisode `json:"episodes"`
}

// FormatEpisodeCode 形如 S01E02
func FormatEpisodeCode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}
