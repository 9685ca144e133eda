package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/componentcache/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	return NewStore(st)
}

func TestPutAndToken(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, Session{ID: "main", AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}))

	tok, err := s.Token(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestToken_Unknown(t *testing.T) {
	_, err := newTestStore(t).Token(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestToken_Expired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, Session{ID: "old", AccessToken: "tok", ExpiresAt: now.Add(-time.Minute)}))

	_, err := s.Token(ctx, "old")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestToken_NoExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, Session{ID: "forever", AccessToken: "tok"}))

	tok, err := s.Token(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestPut_EmptyID(t *testing.T) {
	assert.Error(t, newTestStore(t).Put(context.Background(), Session{AccessToken: "tok"}))
}
