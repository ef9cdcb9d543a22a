package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EpisodeRepository struct {
	db *gorm.DB
}

func NewEpisodeRepository(db *gorm.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

// UpsertCatalogFields 插入或刷新单集；冲突时只更新目录字段，保留用户的观看状态
func (r *EpisodeRepository) UpsertCatalogFields(ctx context.Context, episodes []*model.Episode) error {
	if len(episodes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "show_id"}, {Name: "season_number"}, {Name: "episode_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "air_date", "overview", "runtime", "still_path", "updated_at",
		}),
	}).Create(&episodes).Error
}

// ListBySeason 获取某季的单集，按集号排序
func (r *EpisodeRepository) ListBySeason(ctx context.Context, userID, showID, season int) ([]*model.Episode, error) {
	var episodes []*model.Episode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND show_id = ? AND season_number = ?", userID, showID, season).
		Order("episode_number ASC").
		Find(&episodes).Error
	return episodes, err
}

// ListByShow 获取整部剧的单集
func (r *EpisodeRepository) ListByShow(ctx context.Context, userID, showID int) ([]*model.Episode, error) {
	var episodes []*model.Episode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND show_id = ?", userID, showID).
		Order("season_number ASC").
		Order("episode_number ASC").
		Find(&episodes).Error
	return episodes, err
}

// GetByID 获取当前用户的单集，不存在或不属于该用户时返回 nil
func (r *EpisodeRepository) GetByID(ctx context.Context, userID, id int) (*model.Episode, error) {
	var ep model.Episode
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&ep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// Update 按归属更新字段
func (r *EpisodeRepository) Update(ctx context.Context, userID, id int, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Episode{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// DeleteByShow 删除用户在某部剧下的所有单集
func (r *EpisodeRepository) DeleteByShow(ctx context.Context, userID, showID int) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND show_id = ?", userID, showID).Delete(&model.Episode{})
	return res.RowsAffected, res.Error
}

// ListWatched 获取已看单集，可按观看时间过滤（报表用）
func (r *EpisodeRepository) ListWatched(ctx context.Context, userID int, since *time.Time) ([]*model.Episode, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.EpisodeStatusWatched)
	if since != nil {
		q = q.Where("watched_at >= ?", *since)
	}
	var episodes []*model.Episode
	err := q.Order("watched_at DESC").Find(&episodes).Error
	return episodes, err
}
