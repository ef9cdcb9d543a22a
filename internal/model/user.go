package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 用户模型
type User struct {
	ID            int        `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"size:100"`
	Email         string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash  string     `json:"-" gorm:"not null"`
	Roles         StringList `json:"roles" gorm:"size:255"`
	IsApproved    bool       `json:"isApproved"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`

	// 邮箱验证码（只保存哈希）
	OTPHash      string     `json:"-" gorm:"size:64"`
	OTPExpiresAt *time.Time `json:"-"`

	// 重置密码令牌（只保存哈希）
	ResetTokenHash      string     `json:"-" gorm:"size:64;index"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasRole 是否拥有指定角色
func (u *User) HasRole(role string) bool {
	return u.Roles.Contains(role)
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID    int
	Email string
	Name  string
	Roles []string
}
