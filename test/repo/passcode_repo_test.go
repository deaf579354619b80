package repo_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luoxins/pixgate/internal/model"
	appErr "github.com/luoxins/pixgate/internal/pkg/errors"
	"github.com/luoxins/pixgate/internal/repo"
	"github.com/luoxins/pixgate/test/testutil"
)

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func randomEmail() string {
	return randomHex(6) + "@example.com"
}

func newPasscode(email, purpose, code string, now, expiresAt int64) *model.Passcode {
	return &model.Passcode{
		ID:        randomHex(16),
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		Used:      0,
		Ctime:     now,
		ExpiresAt: expiresAt,
	}
}

func TestPasscodeRepoFindValid(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	passcodes := repo.NewPasscodeRepo(db)
	ctx := context.Background()
	email := randomEmail()
	now := time.Now().Unix()

	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "reset", "111111", now, now+600)))

	item, err := passcodes.FindValid(ctx, email, "111111", "reset", now)
	require.NoError(t, err)
	require.Equal(t, email, item.Email)

	// wrong code
	_, err = passcodes.FindValid(ctx, email, "000000", "reset", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// wrong purpose
	_, err = passcodes.FindValid(ctx, email, "111111", "register", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// expired row never surfaces, deletion lag or not
	_, err = passcodes.FindValid(ctx, email, "111111", "reset", now+601)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestPasscodeRepoMarkUsedOnlyOnce(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	passcodes := repo.NewPasscodeRepo(db)
	ctx := context.Background()
	email := randomEmail()
	now := time.Now().Unix()

	item := newPasscode(email, "reset", "222222", now, now+600)
	require.NoError(t, passcodes.Create(ctx, item))

	require.NoError(t, passcodes.MarkUsed(ctx, item.ID))
	// the second consumption loses the conditional update
	require.ErrorIs(t, passcodes.MarkUsed(ctx, item.ID), appErr.ErrNotFound)

	_, err := passcodes.FindValid(ctx, email, "222222", "reset", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestPasscodeRepoDeleteAllFor(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	passcodes := repo.NewPasscodeRepo(db)
	ctx := context.Background()
	email := randomEmail()
	now := time.Now().Unix()

	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "reset", "333333", now-10, now+600)))
	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "reset", "444444", now, now+600)))
	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "register", "555555", now, now+600)))

	require.NoError(t, passcodes.DeleteAllFor(ctx, email, "reset"))

	_, err := passcodes.FindValid(ctx, email, "333333", "reset", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = passcodes.FindValid(ctx, email, "444444", "reset", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// other purpose untouched
	_, err = passcodes.FindValid(ctx, email, "555555", "register", now)
	require.NoError(t, err)
}

func TestPasscodeRepoDeleteExpiredBefore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	passcodes := repo.NewPasscodeRepo(db)
	ctx := context.Background()
	email := randomEmail()
	now := time.Now().Unix()

	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "reset", "666666", now-7200, now-3600)))
	require.NoError(t, passcodes.Create(ctx, newPasscode(email, "reset", "777777", now, now+600)))

	_, err := passcodes.DeleteExpiredBefore(ctx, now-60)
	require.NoError(t, err)

	item, err := passcodes.LatestFor(ctx, email, "reset")
	require.NoError(t, err)
	require.Equal(t, "777777", item.Code)
}
