package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luoxins/pixgate/internal/config"
	appErr "github.com/luoxins/pixgate/internal/pkg/errors"
	"github.com/luoxins/pixgate/internal/repo"
	"github.com/luoxins/pixgate/internal/service"
	"github.com/luoxins/pixgate/test/testutil"
)

func newAuthService(t *testing.T) (*service.AuthService, *repo.PasscodeRepo, *recordingSender, func()) {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)
	sender := &recordingSender{}
	passcodeRepo := repo.NewPasscodeRepo(db)
	passcodes := service.NewPasscodeService(passcodeRepo, service.NewCodeNotifier(sender), config.VerificationConfig{CodeLength: 6, ExpireMinutes: 10})
	admin := config.AdminConfig{Email: "admin@example.com", Password: "admin_secret"}
	auth := service.NewAuthService(repo.NewUserRepo(db), passcodes, admin, []byte("test-secret"), time.Hour)
	return auth, passcodeRepo, sender, cleanup
}

func registerUser(t *testing.T, auth *service.AuthService, sender *recordingSender, email, pass string) {
	t.Helper()
	ctx := context.Background()
	_, err := auth.SendRegisterCode(ctx, email)
	require.NoError(t, err)
	_, _, err = auth.Register(ctx, email, pass, sender.lastCode())
	require.NoError(t, err)
}

func TestRegisterFlow(t *testing.T) {
	auth, _, sender, cleanup := newAuthService(t)
	defer cleanup()

	ctx := context.Background()
	email := randomEmail()
	registerUser(t, auth, sender, email, "secret1")

	user, token, err := auth.Login(ctx, email, "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, 1, user.EmailVerified)

	// the address is now taken
	_, err = auth.SendRegisterCode(ctx, email)
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestRegisterRejectsBadCode(t *testing.T) {
	auth, _, sender, cleanup := newAuthService(t)
	defer cleanup()

	ctx := context.Background()
	email := randomEmail()
	_, err := auth.SendRegisterCode(ctx, email)
	require.NoError(t, err)

	_, _, err = auth.Register(ctx, email, "secret1", "000000")
	require.ErrorIs(t, err, appErr.ErrCodeInvalid)

	// the real code still works after the failed attempt
	_, _, err = auth.Register(ctx, email, "secret1", sender.lastCode())
	require.NoError(t, err)
}

func TestForgotPasswordHidesAccountExistence(t *testing.T) {
	auth, passcodeRepo, sender, cleanup := newAuthService(t)
	defer cleanup()

	ctx := context.Background()
	unknown := randomEmail()

	require.NoError(t, auth.RequestPasswordReset(ctx, unknown))
	// nothing was stored and nothing was sent for the unknown address
	_, err := passcodeRepo.LatestFor(ctx, unknown, "reset")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Empty(t, sender.bodies)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	auth, _, sender, cleanup := newAuthService(t)
	defer cleanup()

	ctx := context.Background()
	email := randomEmail()
	registerUser(t, auth, sender, email, "old_secret")

	require.NoError(t, auth.RequestPasswordReset(ctx, email))
	code := sender.lastCode()
	require.Len(t, code, 6)

	// policy violation is rejected before the code is touched
	require.ErrorIs(t, auth.CompleteReset(ctx, email, code, "short"), appErr.ErrInvalid)

	require.NoError(t, auth.CompleteReset(ctx, email, code, "new_secret"))

	_, _, err := auth.Login(ctx, email, "old_secret")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, _, err = auth.Login(ctx, email, "new_secret")
	require.NoError(t, err)

	// the code was consumed by the successful reset
	require.ErrorIs(t, auth.CompleteReset(ctx, email, code, "another_secret"), appErr.ErrCodeInvalid)
}

func TestCompleteResetUnknownAccount(t *testing.T) {
	auth, _, _, cleanup := newAuthService(t)
	defer cleanup()

	err := auth.CompleteReset(context.Background(), randomEmail(), "123456", "new_secret")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestAdminLogin(t *testing.T) {
	auth, _, _, cleanup := newAuthService(t)
	defer cleanup()

	ctx := context.Background()
	token, err := auth.AdminLogin(ctx, "admin@example.com", "admin_secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = auth.AdminLogin(ctx, "admin@example.com", "wrong")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}
