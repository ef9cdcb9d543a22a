package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sumuditha-Janith/obscura-backend/internal/clock"
	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/metrics"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
)

const (
	otpDigits = 6
	// bcrypt 只处理前 72 个字节
	maxPasswordBytes = 72
	maxNameLength    = 100
)

// AuthService 注册、邮箱验证、登录与密码找回
type AuthService struct {
	users    *repository.UserRepository
	mailer   Mailer
	clock    clock.Clock
	cooldown *utils.Cooldown
	metrics  *metrics.Metrics

	otpTTL      time.Duration
	resetTTL    time.Duration
	autoApprove bool
	frontendURL string
}

func NewAuthService(users *repository.UserRepository, mailer Mailer, cfg *config.Config, clk clock.Clock, m *metrics.Metrics) *AuthService {
	return &AuthService{
		users:       users,
		mailer:      mailer,
		clock:       clk,
		cooldown:    utils.NewCooldown(cfg.MailCooldown),
		metrics:     m,
		otpTTL:      cfg.OTPTTL,
		resetTTL:    cfg.ResetTokenTTL,
		autoApprove: cfg.AutoApprove,
		frontendURL: cfg.FrontendURL,
	}
}

// NormalizeEmail 去空格并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建未验证账号并发送验证码；邮件失败时账号保留
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := checkPassword("password", password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicate
	}

	user, err := s.users.Create(ctx, name, email, password)
	if err != nil {
		return nil, fromRepo(err)
	}
	logger.Infof("User registered: id=%d email=%s", user.ID, user.Email)

	if err := s.issueOTP(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

// issueOTP 生成并保存验证码，然后发信
func (s *AuthService) issueOTP(ctx context.Context, user *model.User) error {
	key := "otp:" + user.Email
	if !s.cooldown.Allow(key) {
		s.metrics.Mail("otp", "throttled")
		return ErrThrottled
	}

	code, err := utils.RandomDigits(otpDigits)
	if err != nil {
		s.cooldown.Release(key)
		return err
	}
	if err := s.users.SetOTP(ctx, user.ID, utils.HashToken(code), s.clock.Now().UTC().Add(s.otpTTL)); err != nil {
		s.cooldown.Release(key)
		return err
	}

	body := otpEmail(displayName(user), code, int(s.otpTTL.Minutes()))
	if err := s.mailer.Send(ctx, user.Email, "Your Obscura verification code", body); err != nil {
		s.cooldown.Release(key)
		s.metrics.Mail("otp", "failed")
		logger.Errorf("Failed to send OTP to %s: %v", user.Email, err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	s.metrics.Mail("otp", "sent")
	return nil
}

// VerifyOTP 校验验证码；过期后即使验证码正确也失败
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidOTP
	}
	if user.EmailVerified {
		return nil, ErrAlreadyVerified
	}
	if user.OTPHash == "" || user.OTPExpiresAt == nil {
		return nil, ErrInvalidOTP
	}
	if s.clock.Now().After(*user.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(utils.HashToken(strings.TrimSpace(code))), []byte(user.OTPHash)) != 1 {
		return nil, ErrInvalidOTP
	}

	ok, err := s.users.MarkEmailVerified(ctx, user.ID, s.autoApprove)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyVerified
	}
	logger.Infof("Email verified: id=%d", user.ID)
	return s.users.FindByID(ctx, user.ID)
}

// ResendOTP 重新发送验证码
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	return s.issueOTP(ctx, user)
}

// Login 校验密码、验证状态和审核状态
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.users.CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !user.IsApproved {
		return nil, ErrNotApproved
	}

	now := s.clock.Now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		logger.Warnf("Failed to record login time for user %d: %v", user.ID, err)
	} else {
		user.LastLoginAt = &now
	}
	return user, nil
}

// ForgotPassword 发送重置链接；邮箱不存在时静默成功
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	// 冷却按邮箱计，与账号是否存在无关
	key := "reset:" + email
	if !s.cooldown.Allow(key) {
		s.metrics.Mail("reset", "throttled")
		return ErrThrottled
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.cooldown.Release(key)
		return err
	}
	if user == nil {
		logger.Debugf("Password reset requested for unknown email %s", email)
		return nil
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		s.cooldown.Release(key)
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, utils.HashToken(token), s.clock.Now().UTC().Add(s.resetTTL)); err != nil {
		s.cooldown.Release(key)
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	body := resetEmail(displayName(user), link, int(s.resetTTL.Minutes()))
	if err := s.mailer.Send(ctx, user.Email, "Reset your Obscura password", body); err != nil {
		s.cooldown.Release(key)
		s.metrics.Mail("reset", "failed")
		logger.Errorf("Failed to send reset link to %s: %v", user.Email, err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	s.metrics.Mail("reset", "sent")
	return nil
}

// VerifyResetToken 检查令牌是否存在且未过期
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	user, err := s.users.FindByResetTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		return nil, err
	}
	if user == nil || user.ResetTokenExpiresAt == nil {
		return nil, ErrInvalidResetToken
	}
	if s.clock.Now().After(*user.ResetTokenExpiresAt) {
		return nil, ErrInvalidResetToken
	}
	return user, nil
}

// ResetPassword 用令牌设置新密码，令牌只能使用一次
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPassword("password", newPassword); err != nil {
		return err
	}
	user, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}
	ok, err := s.users.ConsumeResetToken(ctx, user.ID, utils.HashToken(strings.TrimSpace(token)), newPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	logger.Infof("Password reset: id=%d", user.ID)
	return nil
}

// ChangePassword 已登录用户修改密码
func (s *AuthService) ChangePassword(ctx context.Context, userID int, current, next string) error {
	if err := checkPassword("newPassword", next); err != nil {
		return err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.users.CheckPassword(user, current) {
		return ErrInvalidCredentials
	}
	if current == next {
		return invalid("newPassword", "must differ from the current password")
	}
	return s.users.UpdatePassword(ctx, userID, next)
}

// GetUser 获取用户
func (s *AuthService) GetUser(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdateProfile 修改昵称
func (s *AuthService) UpdateProfile(ctx context.Context, userID int, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, invalid("name", "must be at most %d characters", maxNameLength)
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// UserPage 管理后台用户分页
type UserPage struct {
	Users []*model.User `json:"users"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

// ListUsers 管理员分页查看用户
func (s *AuthService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit)
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*model.User{}
	}
	return &UserPage{Users: users, Page: page, Limit: limit, Total: total}, nil
}

// SetRoles 管理员设置角色；user 角色始终保留，管理员不能撤销自己的 admin
func (s *AuthService) SetRoles(ctx context.Context, actorID, userID int, roles []string) (*model.User, error) {
	set := []string{model.RoleUser}
	isAdmin := false
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		switch r {
		case model.RoleUser:
		case model.RoleAdmin:
			if !isAdmin {
				set = append(set, model.RoleAdmin)
				isAdmin = true
			}
		default:
			return nil, invalid("roles", "must contain only user or admin")
		}
	}
	if actorID == userID && !isAdmin {
		return nil, invalid("roles", "cannot remove your own admin role")
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateRoles(ctx, userID, set); err != nil {
		return nil, err
	}
	logger.Infof("Roles updated: id=%d roles=%v by=%d", userID, set, actorID)
	return s.GetUser(ctx, userID)
}

// SetApproval 管理员审核用户
func (s *AuthService) SetApproval(ctx context.Context, userID int, approved bool) (*model.User, error) {
	ok, err := s.users.SetApproval(ctx, userID, approved)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 值未变化时 RowsAffected 可能为 0，再确认一次是否存在
		if _, err := s.GetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return s.GetUser(ctx, userID)
}

// checkPassword 按字节检查长度，多字节字符可能在字符数合法时超出 bcrypt 限制
func checkPassword(field, password string) error {
	if len(password) > maxPasswordBytes {
		return invalid(field, "must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

func displayName(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
