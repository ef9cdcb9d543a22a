package handler

import (
	"errors"
	"strings"

	"github.com/Sumuditha-Janith/obscura-backend/internal/logger"
	"github.com/Sumuditha-Janith/obscura-backend/internal/middleware"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionKey Session 中保存登录用户信息的键
const SessionKey = "userinfo"

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type profileRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

// Register 注册并发送验证码
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		// 账号已创建但邮件失败，提示重新发送
		if user != nil && errors.Is(err, service.ErrMailDelivery) {
			utils.Created(c, "Account created, but the verification email could not be sent. Please request a new code.", user)
			return
		}
		respondError(c, err)
		return
	}
	utils.Created(c, "Registration successful. Check your email for the verification code.", user)
}

// VerifyOTP 校验邮箱验证码
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}

	user, err := h.auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "Email verified. You can now log in."
	if !user.IsApproved {
		msg = "Email verified. Your account is pending approval."
	}
	utils.SuccessWithMessage(c, msg, user)
}

// ResendOTP 重新发送验证码
func (h *Handler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	if err := h.auth.ResendOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "A new verification code has been sent.", nil)
}

// Login 登录：签发 JWT，写入 Cookie 和 Session
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, user.Roles, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetTokenCookie(c, token, h.Config.JWTExpiry)

	session := sessions.Default(c)
	session.Set(SessionKey, model.SessionUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Roles: user.Roles,
	})
	if err := session.Save(); err != nil {
		logger.Warnf("Failed to save session for user %d: %v", user.ID, err)
	}

	utils.SuccessWithMessage(c, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout 清除 Cookie 和 Session
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()
	utils.SuccessWithMessage(c, "Logged out", nil)
}

// Me 当前登录用户
func (h *Handler) Me(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, user)
}

// UpdateMe 修改当前用户昵称，同步更新 Session
func (h *Handler) UpdateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	if su, ok := session.Get(SessionKey).(model.SessionUser); ok && su.ID == user.ID {
		su.Name = user.Name
		session.Set(SessionKey, su)
		if err := session.Save(); err != nil {
			logger.Warnf("Failed to save session for user %d: %v", user.ID, err)
		}
	}
	utils.SuccessWithMessage(c, "Profile updated", user)
}

// ForgotPassword 发送重置链接；邮箱是否存在都返回同样的结果
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "If an account exists for that email, a reset link has been sent.", nil)
}

// VerifyResetToken 前端打开重置页时校验令牌
func (h *Handler) VerifyResetToken(c *gin.Context) {
	user, err := h.auth.VerifyResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"valid": true, "email": maskEmail(user.Email)})
}

// ResetPassword 使用令牌重置密码
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Password has been reset. You can now log in.", nil)
}

// ChangePassword 已登录用户修改密码
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Password updated", nil)
}

// maskEmail a***@example.com
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
