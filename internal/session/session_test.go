package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/storage"
)

type fakeAuth struct {
	resp  *model.LoginResponse
	err   error
	calls int
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (*model.LoginResponse, error) {
	f.calls++
	return f.resp, f.err
}

func newTestStore(t *testing.T) (*Store, *storage.SQLiteStorage) {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), db
}

func TestStore_LoginPersistsCredential(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	assert.False(t, store.IsAuthenticated(ctx))

	auth := &fakeAuth{resp: &model.LoginResponse{AccessToken: "tok-123", TokenType: "bearer", Username: "alice"}}
	sess, err := store.Login(ctx, auth, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", sess.Token)
	assert.Equal(t, "alice", sess.Username)
	assert.True(t, sess.Authenticated())
	assert.Nil(t, sess.ExpiresAt)

	assert.True(t, store.IsAuthenticated(ctx))

	token, err := db.GetValue(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	username, err := db.GetValue(ctx, UsernameKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", current.Username)
	assert.Equal(t, "bearer", current.TokenType)
}

func TestStore_LoginFailures(t *testing.T) {
	tests := []struct {
		auth     *fakeAuth
		name     string
		username string
		password string
		calls    int
	}{
		{
			name:     "server rejects credentials",
			auth:     &fakeAuth{err: errors.New("401")},
			username: "alice",
			password: "wrong",
			calls:    1,
		},
		{
			name:     "empty token",
			auth:     &fakeAuth{resp: &model.LoginResponse{}},
			username: "alice",
			password: "secret",
			calls:    1,
		},
		{
			name:     "blank username never reaches the server",
			auth:     &fakeAuth{},
			username: " ",
			password: "secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			ctx := context.Background()

			_, err := store.Login(ctx, tt.auth, tt.username, tt.password)
			require.ErrorIs(t, err, common.ErrAuthFailed)
			assert.Equal(t, LoginFailedMessage, common.Message(err, ""))
			assert.Equal(t, tt.calls, tt.auth.calls)
			assert.False(t, store.IsAuthenticated(ctx))
		})
	}
}

func TestStore_LogoutClearsKeysAndNotifies(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.SetValue(ctx, TokenKey, "tok"))
	require.NoError(t, db.SetValue(ctx, UsernameKey, "alice"))
	require.NoError(t, db.SetValue(ctx, storage.LatestDealKey, `{"month":"Nov","rowIndex":4}`))

	var got []LogoutReason
	unsubscribe := store.Subscribe(func(r LogoutReason) { got = append(got, r) })

	require.NoError(t, store.Logout(ctx, ReasonUnauthorized))
	assert.False(t, store.IsAuthenticated(ctx))
	assert.Equal(t, []LogoutReason{ReasonUnauthorized}, got)

	_, err := db.GetValue(ctx, UsernameKey)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The latest-deal pointer belongs to the client, not the session.
	_, err = db.GetValue(ctx, storage.LatestDealKey)
	assert.NoError(t, err)

	_, err = store.Current(ctx)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)

	unsubscribe()
	require.NoError(t, store.Logout(ctx, ReasonUser))
	assert.Len(t, got, 1)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("key"))
	require.NoError(t, err)

	got := TokenExpiry(signed)
	require.NotNil(t, got)
	assert.True(t, exp.Equal(*got))

	assert.Nil(t, TokenExpiry("opaque-token"))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("key"))
	require.NoError(t, err)
	assert.Nil(t, TokenExpiry(noExp))
}
