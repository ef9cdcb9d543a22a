package service

import (
	"errors"
	"fmt"

	"github.com/Sumuditha-Janith/obscura-backend/internal/repository"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicate          = errors.New("item already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrNotApproved        = errors.New("account is pending approval")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code has expired")
	ErrAlreadyVerified    = errors.New("email address is already verified")
	ErrInvalidResetToken  = errors.New("password reset link is invalid or has expired")
	ErrThrottled          = errors.New("please wait before requesting another email")
	ErrCatalogUnavailable = errors.New("catalog service unavailable")
	ErrMailDelivery       = errors.New("failed to send email")
)

// ValidationError 业务层参数校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// fromRepo 把仓库层错误换成服务层哨兵错误
func fromRepo(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrDuplicate
	}
	return err
}
