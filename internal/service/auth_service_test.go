package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/internal/service"
	"supplylink/internal/testutil"
	"supplylink/internal/token"
	"supplylink/internal/tokenstore"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authEnv struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	jobs  *recordingQueue
	auth  service.AuthService
	users service.UserService
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	jobs := &recordingQueue{}

	userRepo := repository.NewUserRepository(db)
	tokens := token.NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)

	return &authEnv{
		db:    db,
		mr:    mr,
		jobs:  jobs,
		auth:  service.NewAuthService(userRepo, tokens, tokenstore.New(rdb), jobs, time.Hour, nil),
		users: service.NewUserService(userRepo, repository.NewAuditRepository(db), repository.NewTransactionManager(db)),
	}
}

func registration(email, cnpj string) service.RegisterRequest {
	return service.RegisterRequest{
		Name:        "Ana",
		Email:       email,
		Password:    "s3cret-pass",
		CompanyName: "Ana Metals",
		CNPJ:        cnpj,
		Role:        model.RoleSupplier,
	}
}

func TestAuth_RegisterApproveLogin(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, model.RoleAdmin)

	user, err := e.auth.Register(ctx, registration(" Ana@Example.com ", "12.345.678/0001-90"))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, model.UserStatusPending, user.Status)

	_, err = e.auth.Register(ctx, registration("ana@example.com", "99.999.999/0001-99"))
	assert.ErrorIs(t, err, apperror.ErrConflict, "duplicate email")
	_, err = e.auth.Register(ctx, registration("other@example.com", "12.345.678/0001-90"))
	assert.ErrorIs(t, err, apperror.ErrConflict, "duplicate cnpj")

	admins := registration("root@example.com", "00.000.000/0009-00")
	admins.Role = model.RoleAdmin
	_, err = e.auth.Register(ctx, admins)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	login := service.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"}
	_, err = e.auth.Login(ctx, login)
	assert.ErrorIs(t, err, apperror.ErrForbidden, "pending account")

	_, err = e.users.Approve(ctx, user.ID, service.Caller{ID: admin.ID, Role: admin.Role})
	require.NoError(t, err)

	res, err := e.auth.Login(ctx, login)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, user.ID, res.User.ID)

	_, err = e.auth.Login(ctx, service.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = e.auth.Login(ctx, service.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	caller, err := service.NewCaller(user.ID, model.RoleSupplier)
	require.NoError(t, err)
	me, err := e.auth.Me(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, me.Status)
}

func TestAuth_RefreshRotatesAndRejectsReuse(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	user, err := e.auth.Register(ctx, registration("rot@example.com", "1"))
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", user.ID).Update("status", model.UserStatusActive).Error)

	login, err := e.auth.Login(ctx, service.LoginRequest{Email: "rot@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	next, err := e.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)

	_, err = e.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "rotated token reused")

	_, err = e.auth.Refresh(ctx, next.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "access token is not a refresh token")

	require.NoError(t, e.auth.Logout(ctx, next.RefreshToken))
	_, err = e.auth.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "logged out")

	assert.NoError(t, e.auth.Logout(ctx, "garbage"))
	assert.NoError(t, e.auth.Logout(ctx, ""))
}

func TestAuth_RefreshRejectsBlockedUser(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, e.db, model.RoleAdmin)
	user, err := e.auth.Register(ctx, registration("blk@example.com", "2"))
	require.NoError(t, err)
	adminCaller := service.Caller{ID: admin.ID, Role: admin.Role}

	_, err = e.users.Approve(ctx, user.ID, adminCaller)
	require.NoError(t, err)
	login, err := e.auth.Login(ctx, service.LoginRequest{Email: "blk@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = e.users.Block(ctx, user.ID, adminCaller)
	require.NoError(t, err)

	_, err = e.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = e.users.Block(ctx, admin.ID.String(), adminCaller)
	assert.ErrorIs(t, err, apperror.ErrBadRequest, "admins cannot block themselves")
}

func TestAuth_ForgotAndResetPassword(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	user, err := e.auth.Register(ctx, registration("reset@example.com", "3"))
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", user.ID).Update("status", model.UserStatusActive).Error)

	require.NoError(t, e.auth.ForgotPassword(ctx, service.ForgotPasswordRequest{Email: "unknown@example.com"}))
	assert.Empty(t, e.jobs.byType(queue.JobSendEmail), "no mail for unknown addresses")

	require.NoError(t, e.auth.ForgotPassword(ctx, service.ForgotPasswordRequest{Email: "RESET@example.com"}))
	mails := e.jobs.byType(queue.JobSendEmail)
	require.Len(t, mails, 1)
	assert.Equal(t, "reset@example.com", mails[0].Email)
	fields := strings.Fields(mails[0].Body)
	resetToken := fields[len(fields)-1]

	err = e.auth.ResetPassword(ctx, service.ResetPasswordRequest{Token: "bogus", Password: "brand-new-pass"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	require.NoError(t, e.auth.ResetPassword(ctx, service.ResetPasswordRequest{Token: resetToken, Password: "brand-new-pass"}))

	err = e.auth.ResetPassword(ctx, service.ResetPasswordRequest{Token: resetToken, Password: "another-pass"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest, "token is single use")

	_, err = e.auth.Login(ctx, service.LoginRequest{Email: "reset@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = e.auth.Login(ctx, service.LoginRequest{Email: "reset@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestAuth_ResetTokenExpires(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	_, err := e.auth.Register(ctx, registration("late@example.com", "4"))
	require.NoError(t, err)

	require.NoError(t, e.auth.ForgotPassword(ctx, service.ForgotPasswordRequest{Email: "late@example.com"}))
	mails := e.jobs.byType(queue.JobSendEmail)
	require.Len(t, mails, 1)
	fields := strings.Fields(mails[0].Body)

	e.mr.FastForward(2 * time.Hour)

	err = e.auth.ResetPassword(ctx, service.ResetPasswordRequest{Token: fields[len(fields)-1], Password: "brand-new-pass"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestUserService_ProfileAndListing(t *testing.T) {
	e := newAuthEnv(t)
	ctx := context.Background()
	f := testutil.CreateUser(t, e.db, model.RoleFactory)
	testutil.CreateUser(t, e.db, model.RoleSupplier)
	caller := service.Caller{ID: f.ID, Role: f.Role}

	phone := " +55 11 5555-0000 "
	blank := "  "
	got, err := e.users.UpdateProfile(ctx, caller, service.UpdateProfileRequest{Phone: &phone, Name: &blank})
	require.NoError(t, err)
	assert.Equal(t, "+55 11 5555-0000", got.Phone)
	assert.Equal(t, f.Name, got.Name, "blank name ignored")

	profile, err := e.users.GetProfile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, got.Phone, profile.Phone)

	list, total, err := e.users.List(ctx, service.UserFilterRequest{Role: model.RoleFactory}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, f.ID.String(), list[0].ID)

	require.NoError(t, e.users.Remove(ctx, f.ID.String()))
	_, err = e.users.FindByID(ctx, f.ID.String())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, e.users.Remove(ctx, f.ID.String()), apperror.ErrNotFound)
}
