package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Create 创建用户（未验证状态）
func (r *UserRepository) Create(ctx context.Context, name, email, password string, roles ...string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        model.StringList(roles),
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// FindByEmail 根据邮箱查找用户
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByResetTokenHash 根据重置令牌哈希查找用户
func (r *UserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	var user model.User
	err := r.db.WithContext(ctx).Where("reset_token_hash = ?", tokenHash).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckPassword 验证密码
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// UpdatePassword 更新密码
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
}

// UpdateName 更新昵称
func (r *UserRepository) UpdateName(ctx context.Context, userID int, name string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("name", name).Error
}

// SetOTP 保存验证码哈希及过期时间
func (r *UserRepository) SetOTP(ctx context.Context, userID int, otpHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"otp_hash":       otpHash,
		"otp_expires_at": expiresAt,
	}).Error
}

// MarkEmailVerified 标记邮箱已验证并清除验证码，只会成功一次
func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID int, approve bool) (bool, error) {
	updates := map[string]interface{}{
		"email_verified": true,
		"otp_hash":       "",
		"otp_expires_at": nil,
	}
	if approve {
		updates["is_approved"] = true
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND email_verified = ?", userID, false).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// SetResetToken 保存重置令牌哈希及过期时间
func (r *UserRepository) SetResetToken(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token_hash":       tokenHash,
		"reset_token_expires_at": expiresAt,
	}).Error
}

// ConsumeResetToken 用令牌重置密码并作废令牌；令牌已被使用时返回 false
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID int, tokenHash, newPassword string) (bool, error) {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND reset_token_hash = ?", userID, tokenHash).
		Updates(map[string]interface{}{
			"password_hash":          hash,
			"reset_token_hash":       "",
			"reset_token_expires_at": nil,
		})
	return res.RowsAffected == 1, res.Error
}

// TouchLogin 记录最后登录时间
func (r *UserRepository) TouchLogin(ctx context.Context, userID int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).UpdateColumn("last_login_at", at).Error
}

// List 分页获取用户列表
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count 获取用户总数
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

// SetApproval 更新审核状态
func (r *UserRepository) SetApproval(ctx context.Context, userID int, approved bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("is_approved", approved)
	return res.RowsAffected == 1, res.Error
}

// UpdateRoles 更新用户角色
func (r *UserRepository) UpdateRoles(ctx context.Context, userID int, roles []string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("roles", model.StringList(roles)).Error
}

// PurgeExpiredTokens 清理已过期的验证码和重置令牌
func (r *UserRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	otp := r.db.WithContext(ctx).Model(&model.User{}).
		Where("otp_expires_at IS NOT NULL AND otp_expires_at < ?", now).
		Updates(map[string]interface{}{"otp_hash": "", "otp_expires_at": nil})
	if otp.Error != nil {
		return 0, otp.Error
	}
	reset := r.db.WithContext(ctx).Model(&model.User{}).
		Where("reset_token_expires_at IS NOT NULL AND reset_token_expires_at < ?", now).
		Updates(map[string]interface{}{"reset_token_hash": "", "reset_token_expires_at": nil})
	if reset.Error != nil {
		return otp.RowsAffected, reset.Error
	}
	return otp.RowsAffected + reset.RowsAffected, nil
}

// DeleteUnverifiedBefore 删除注册早于 cutoff 且仍未验证的账号
func (r *UserRepository) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("email_verified = ? AND created_at < ?", false, cutoff).
		Delete(&model.User{})
	return res.RowsAffected, res.Error
}
