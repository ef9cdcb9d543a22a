package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"gorm.io/gorm"
)

type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// MediaFilter 片单查询条件
type MediaFilter struct {
	UserID int
	Status model.WatchStatus
	Type   model.MediaType
	Since  *time.Time
	Limit  int
	Offset int
}

func (r *MediaRepository) scoped(ctx context.Context, f MediaFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Media{}).Where("user_id = ?", f.UserID)
	if f.Status != "" {
		q = q.Where("watch_status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("media_type = ?", f.Type)
	}
	if f.Since != nil {
		q = q.Where("updated_at >= ?", *f.Since)
	}
	return q
}

// Create 加入片单；同一用户重复加入同一条目返回 ErrDuplicate
func (r *MediaRepository) Create(ctx context.Context, m *model.Media) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

// GetByID 获取当前用户的条目，不存在或不属于该用户时返回 nil
func (r *MediaRepository) GetByID(ctx context.Context, userID, id int) (*model.Media, error) {
	var m model.Media
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByCatalogID 根据 TMDB ID 获取条目
func (r *MediaRepository) GetByCatalogID(ctx context.Context, userID, catalogID int, mediaType model.MediaType) (*model.Media, error) {
	var m model.Media
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND catalog_id = ? AND media_type = ?", userID, catalogID, mediaType).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Exists 是否已在片单
func (r *MediaRepository) Exists(ctx context.Context, userID, catalogID int, mediaType model.MediaType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Media{}).
		Where("user_id = ? AND catalog_id = ? AND media_type = ?", userID, catalogID, mediaType).
		Count(&count).Error
	return count > 0, err
}

// Update 按归属更新字段，返回受影响行数
func (r *MediaRepository) Update(ctx context.Context, userID, id int, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Media{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// SetAggregate 写入剧集汇总状态与观看时长；用户未收藏该剧时不做任何事
func (r *MediaRepository) SetAggregate(ctx context.Context, userID, showID int, status model.WatchStatus, minutes int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Media{}).
		Where("user_id = ? AND catalog_id = ? AND media_type = ?", userID, showID, model.MediaTypeTV).
		Updates(map[string]interface{}{
			"watch_status":       status,
			"watch_time_minutes": minutes,
		})
	return res.RowsAffected, res.Error
}

// Delete 按归属删除
func (r *MediaRepository) Delete(ctx context.Context, userID, id int) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Media{})
	return res.RowsAffected, res.Error
}

// List 分页查询片单，同时返回总数及筛选结果的总观看时长
func (r *MediaRepository) List(ctx context.Context, f MediaFilter) ([]*model.Media, int64, int, error) {
	var total int64
	if err := r.scoped(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, 0, err
	}

	var minutes struct{ Total int }
	if err := r.scoped(ctx, f).Select("COALESCE(SUM(watch_time_minutes), 0) AS total").Scan(&minutes).Error; err != nil {
		return nil, 0, 0, err
	}

	var items []*model.Media
	q := r.scoped(ctx, f).Order("updated_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, 0, err
	}
	return items, total, minutes.Total, nil
}

// ListAll 不分页查询（报表用）
func (r *MediaRepository) ListAll(ctx context.Context, f MediaFilter) ([]*model.Media, error) {
	var items []*model.Media
	err := r.scoped(ctx, f).Order("updated_at DESC").Order("id DESC").Find(&items).Error
	return items, err
}
