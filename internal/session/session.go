// Package session keeps API session tokens in the SESSIONS storage namespace.
// Obtaining tokens is left to the caller.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iTrooz/componentcache/internal/storage"
)

// ErrNoSession is returned when a session is unknown or expired.
var ErrNoSession = errors.New("no usable session")

type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the token is past its expiry. A zero ExpiresAt
// never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Store struct {
	storage *storage.Store
	now     func() time.Time
}

func NewStore(s *storage.Store) *Store {
	return &Store{storage: s, now: time.Now}
}

func fileKey(id string) string {
	return "session-" + id + ".json"
}

func (s *Store) Put(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is empty")
	}
	rec := storage.Record[Session]{Filename: fileKey(sess.ID), Content: sess}
	if err := storage.Write(ctx, s.storage, storage.NamespaceSessions, rec); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	rec, err := storage.Read[Session](ctx, s.storage, storage.NamespaceSessions, fileKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: %s", ErrNoSession, id)
		}
		return Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return rec.Content, nil
}

// Token returns the access token of a live session.
func (s *Store) Token(ctx context.Context, id string) (string, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.Expired(s.now()) {
		return "", fmt.Errorf("%w: %s expired at %s", ErrNoSession, id, sess.ExpiresAt.Format(time.RFC3339))
	}
	return sess.AccessToken, nil
}
