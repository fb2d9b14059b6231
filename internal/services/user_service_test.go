package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/repositories"
)

func newUserService(f *fixture) UserService {
	return NewUserService(f.store.Users(), f.store.Catalog(), f.store.Pricing(), f.store.TelegramLinks(),
		&mailbox{resets: map[string]string{}}, NewAuthService("secret", time.Minute), time.Hour, 10*time.Minute)
}

func TestTelegramLink_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := newUserService(f)

	link, err := users.CreateTelegramLink(ctx, f.student.UserID)
	require.NoError(t, err)
	require.Len(t, link.Code, 12)

	user, err := users.LinkTelegram(ctx, " "+strings.ToLower(link.Code)+" ", 555)
	require.NoError(t, err)
	assert.Equal(t, f.student.UserID, user.ID)
	assert.Equal(t, int64(555), user.TelegramChatID)
	assert.True(t, user.NotifyTelegram)

	_, err = users.LinkTelegram(ctx, link.Code, 777)
	assert.ErrorIs(t, err, repositories.ErrTokenInvalid)
	stored, err := f.store.Users().GetByID(ctx, f.student.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(555), stored.TelegramChatID)
}

func TestTelegramLink_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := newUserService(f)

	link, err := users.CreateTelegramLink(ctx, f.student2.UserID)
	require.NoError(t, err)

	f.store.SetClock(func() time.Time { return time.Now().Add(11 * time.Minute) })
	_, err = users.LinkTelegram(ctx, link.Code, 555)
	assert.ErrorIs(t, err, repositories.ErrTokenInvalid)

	stored, err := f.store.Users().GetByID(ctx, f.student2.UserID)
	require.NoError(t, err)
	assert.Zero(t, stored.TelegramChatID)
}

func TestTelegramLink_RejectsBlankInput(t *testing.T) {
	f := newFixture(t)
	users := newUserService(f)

	_, err := users.LinkTelegram(context.Background(), "  ", 555)
	assert.ErrorIs(t, err, repositories.ErrTokenInvalid)

	link, err := users.CreateTelegramLink(context.Background(), f.student.UserID)
	require.NoError(t, err)
	_, err = users.LinkTelegram(context.Background(), link.Code, 0)
	assert.ErrorIs(t, err, repositories.ErrTokenInvalid)

	// A refused attempt does not burn the code.
	_, err = users.LinkTelegram(context.Background(), link.Code, 555)
	assert.NoError(t, err)
}
