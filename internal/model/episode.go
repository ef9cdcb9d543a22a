package model

import (
	"time"
)

// EpisodeStatus 单集观看状态
type EpisodeStatus string

const (
	EpisodeStatusUnwatched EpisodeStatus = "unwatched"
	EpisodeStatusWatched   EpisodeStatus = "watched"
	EpisodeStatusSkipped   EpisodeStatus = "skipped"
)

// Valid 是否为已知状态
func (s EpisodeStatus) Valid() bool {
	switch s {
	case EpisodeStatusUnwatched, EpisodeStatusWatched, EpisodeStatusSkipped:
		return true
	}
	return false
}

// Episode 用户单集观看记录，(user_id, show_id, season_number, episode_number) 唯一
type Episode struct {
	ID            int `json:"id" gorm:"primaryKey"`
	UserID        int `json:"userId" gorm:"not null;uniqueIndex:idx_episode_owner_slot"`
	ShowID        int `json:"showId" gorm:"not null;uniqueIndex:idx_episode_owner_slot"`
	SeasonNumber  int `json:"seasonNumber" gorm:"not null;uniqueIndex:idx_episode_owner_slot"`
	EpisodeNumber int `json:"episodeNumber" gorm:"not null;uniqueIndex:idx_episode_owner_slot"`

	Title     string `json:"title"`
	AirDate   string `json:"airDate"`
	Overview  string `json:"overview"`
	Runtime   int    `json:"runtime"`
	StillPath string `json:"stillPath"`

	Status    EpisodeStatus `json:"status" gorm:"size:16;not null;index"`
	WatchedAt *time.Time    `json:"watchedAt"`
	Rating    *int          `json:"rating"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Code 形如 S01E02
func (e *Episode) Code() string {
	return FormatEpisodeCode(e.SeasonNumber, e.EpisodeNumber)
}
