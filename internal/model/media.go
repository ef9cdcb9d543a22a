package model

import (
	"time"
)

// MediaType 媒体类型
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid 是否为已知类型
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// WatchStatus 片单条目状态
type WatchStatus string

const (
	WatchStatusPlanned   WatchStatus = "planned"
	WatchStatusWatching  WatchStatus = "watching"
	WatchStatusCompleted WatchStatus = "completed"
)

// Valid 是否为已知状态
func (s WatchStatus) Valid() bool {
	switch s {
	case WatchStatusPlanned, WatchStatusWatching, WatchStatusCompleted:
		return true
	}
	return false
}

// 上游缺失时长时的兜底值（分钟）
const (
	DefaultMovieRuntime   = 120
	DefaultEpisodeRuntime = 45
)

// Media 用户片单条目，(user_id, catalog_id, media_type) 唯一
type Media struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	UserID    int       `json:"userId" gorm:"not null;uniqueIndex:idx_media_owner_item"`
	CatalogID int       `json:"tmdbId" gorm:"not null;uniqueIndex:idx_media_owner_item"`
	MediaType MediaType `json:"type" gorm:"size:8;not null;uniqueIndex:idx_media_owner_item"`

	Title        string     `json:"title"`
	Overview     string     `json:"overview"`
	PosterPath   string     `json:"posterPath"`
	BackdropPath string     `json:"backdropPath"`
	ReleaseDate  string     `json:"releaseDate"`
	Genres       StringList `json:"genres" gorm:"size:512"`
	VoteAverage  float64    `json:"voteAverage"`
	VoteCount    int        `json:"voteCount"`

	// 电影为片长，剧集为单集时长
	Runtime      int `json:"runtime"`
	EpisodeCount int `json:"episodeCount"`
	SeasonCount  int `json:"seasonCount"`

	WatchStatus      WatchStatus `json:"watchStatus" gorm:"size:16;not null;index"`
	Rating           *int        `json:"rating"`
	WatchTimeMinutes int         `json:"watchTimeMinutes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"index"`
}

// EstimatedWatchTime 加入片单时的观看时长估算：电影为片长，剧集为集数×单集时长
func EstimatedWatchTime(item *CatalogItem) int {
	if item == nil {
		return 0
	}
	if item.Type == MediaTypeTV {
		return item.EpisodeCount * item.Runtime
	}
	return item.Runtime
}
