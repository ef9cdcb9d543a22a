package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/config"
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "  Ada ", "  Ada@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)
	assert.False(t, user.EmailVerified)

	code := f.mailer.LastOTP("ada@example.com")
	require.Len(t, code, 6)

	_, err = f.auth.Login(ctx, "ada@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.auth.VerifyOTP(ctx, "ada@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	verified, err := f.auth.VerifyOTP(ctx, "ADA@example.com", code)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.True(t, verified.IsApproved)
	assert.Empty(t, verified.OTPHash)

	_, err = f.auth.VerifyOTP(ctx, "ada@example.com", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	logged, err := f.auth.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.NotNil(t, logged.LastLoginAt)

	_, err = f.auth.Register(ctx, "Again", "ada@example.com", "password123")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "Late", "late@example.com", "password123")
	require.NoError(t, err)
	code := f.mailer.LastOTP("late@example.com")

	f.clock.Advance(11 * time.Minute)
	_, err = f.auth.VerifyOTP(ctx, "late@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)

	// 重新发送后新验证码可用
	require.NoError(t, f.auth.ResendOTP(ctx, "late@example.com"))
	fresh := f.mailer.LastOTP("late@example.com")
	_, err = f.auth.VerifyOTP(ctx, "late@example.com", fresh)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.auth.ResendOTP(ctx, "late@example.com"), ErrAlreadyVerified)
	assert.ErrorIs(t, f.auth.ResendOTP(ctx, "nobody@example.com"), ErrNotFound)
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.VerifyOTP(context.Background(), "ghost@example.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestLoginErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "login@example.com")

	_, err := f.auth.Login(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "missing@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManualApproval(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoApprove = false })
	ctx := context.Background()

	user := f.verifiedUser(t, "pending@example.com")
	assert.False(t, user.IsApproved)

	_, err := f.auth.Login(ctx, "pending@example.com", "password123")
	assert.ErrorIs(t, err, ErrNotApproved)

	approved, err := f.auth.SetApproval(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = f.auth.Login(ctx, "pending@example.com", "password123")
	assert.NoError(t, err)

	_, err = f.auth.SetApproval(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := f.auth.ListUsers(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, users.Users, 1)
	assert.Equal(t, int64(1), users.Total)
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "reset@example.com")

	require.NoError(t, f.auth.ForgotPassword(ctx, " Reset@example.com"))
	token := f.mailer.LastResetToken("reset@example.com")
	require.Len(t, token, 64)

	msg, ok := f.mailer.Last("reset@example.com")
	require.True(t, ok)
	assert.Contains(t, msg.Body, "http://localhost:5173/reset-password/"+token)

	_, err := f.auth.VerifyResetToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, f.auth.ResetPassword(ctx, token, "new-password-1"))
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, token, "new-password-2"), ErrInvalidResetToken)

	_, err = f.auth.Login(ctx, "reset@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "reset@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestPasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "expire@example.com")

	require.NoError(t, f.auth.ForgotPassword(ctx, "expire@example.com"))
	token := f.mailer.LastResetToken("expire@example.com")

	f.clock.Advance(61 * time.Minute)
	_, err := f.auth.VerifyResetToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, token, "whatever-123"), ErrInvalidResetToken)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, "", "whatever-123"), ErrInvalidResetToken)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.Sent)
}

func TestMailCooldown(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MailCooldown = time.Minute })
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "Busy", "busy@example.com", "password123")
	require.NoError(t, err)
	assert.ErrorIs(t, f.auth.ResendOTP(ctx, "busy@example.com"), ErrThrottled)

	require.NoError(t, f.auth.ForgotPassword(ctx, "nobody@example.com"))
	assert.ErrorIs(t, f.auth.ForgotPassword(ctx, "nobody@example.com"), ErrThrottled)
}

func TestRegisterKeepsAccountWhenMailFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mailer.Err = errors.New("smtp down")

	user, err := f.auth.Register(ctx, "Offline", "offline@example.com", "password123")
	assert.ErrorIs(t, err, ErrMailDelivery)
	require.NotNil(t, user)

	stored, err := f.repos.User.FindByEmail(ctx, "offline@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.OTPHash)

	f.mailer.Err = nil
	require.NoError(t, f.auth.ResendOTP(ctx, "offline@example.com"))
	_, err = f.auth.VerifyOTP(ctx, "offline@example.com", f.mailer.LastOTP("offline@example.com"))
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "change@example.com")

	assert.ErrorIs(t, f.auth.ChangePassword(ctx, user.ID, "bad", "next-password"), ErrInvalidCredentials)

	var vErr *ValidationError
	assert.ErrorAs(t, f.auth.ChangePassword(ctx, user.ID, "password123", "password123"), &vErr)

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, "password123", "next-password"))
	_, err := f.auth.Login(ctx, "change@example.com", "next-password")
	assert.NoError(t, err)
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 40 个字符，80 个字节
	long := strings.Repeat("é", 40)

	var vErr *ValidationError
	_, err := f.auth.Register(ctx, "Multi", "multi@example.com", long)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "password", vErr.Field)
	found, err := f.repos.User.FindByEmail(ctx, "multi@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	user := f.verifiedUser(t, "bytes@example.com")
	assert.ErrorAs(t, f.auth.ChangePassword(ctx, user.ID, "password123", long), &vErr)
	assert.ErrorAs(t, f.auth.ResetPassword(ctx, "whatever", long), &vErr)

	_, err = f.auth.Register(ctx, "Exact", "exact@example.com", strings.Repeat("é", 36))
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.verifiedUser(t, "profile@example.com")

	updated, err := f.auth.UpdateProfile(ctx, user.ID, "  New Name ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	var vErr *ValidationError
	_, err = f.auth.UpdateProfile(ctx, user.ID, "   ")
	assert.ErrorAs(t, err, &vErr)
	_, err = f.auth.UpdateProfile(ctx, user.ID, strings.Repeat("名", 101))
	assert.ErrorAs(t, err, &vErr)
	_, err = f.auth.UpdateProfile(ctx, 9999, "Ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.verifiedUser(t, "boss@example.com")
	user := f.verifiedUser(t, "staff@example.com")

	promoted, err := f.auth.SetRoles(ctx, admin.ID, user.ID, []string{"admin", "Admin"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.RoleUser, model.RoleAdmin}, []string(promoted.Roles))

	demoted, err := f.auth.SetRoles(ctx, admin.ID, user.ID, []string{"user"})
	require.NoError(t, err)
	assert.False(t, demoted.HasRole(model.RoleAdmin))
	assert.True(t, demoted.HasRole(model.RoleUser))

	var vErr *ValidationError
	_, err = f.auth.SetRoles(ctx, admin.ID, user.ID, []string{"root"})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.auth.SetRoles(ctx, admin.ID, admin.ID, []string{"user"})
	assert.ErrorAs(t, err, &vErr)
	_, err = f.auth.SetRoles(ctx, admin.ID, 9999, []string{"user"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsersPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		f.verifiedUser(t, email)
	}

	page, err := f.auth.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "c@example.com", page.Users[0].Email)

	page, err = f.auth.ListUsers(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.NotNil(t, page.Users)
}
