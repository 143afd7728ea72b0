package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/GKaszewski/k-core/pkg/session"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "kcore_session"

var errResetUnsupported = errors.New("session storage: reset is not supported")

// AttachSessions returns a fiber session store persisting through store.
func AttachSessions(store session.Store, cfg SessionConfig) *fibersession.Store {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}

	return fibersession.New(fibersession.Config{
		Expiration:     expiry,
		Storage:        &sessionStorage{store: store, expiry: expiry, now: time.Now},
		KeyLookup:      "cookie:" + SessionCookie,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		KeyGenerator:   session.NewID,
	})
}

// sessionStorage adapts a session.Store to fiber.Storage. It does not own
// the store: Close is a no-op.
type sessionStorage struct {
	store  session.Store
	expiry time.Duration
	now    func() time.Time
}

var _ fiber.Storage = (*sessionStorage)(nil)

func (s *sessionStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	rec, err := s.store.Load(context.Background(), key)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *sessionStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	if exp <= 0 {
		exp = s.expiry
	}
	return s.store.Save(context.Background(), &session.Record{
		ID:        key,
		Data:      val,
		ExpiresAt: s.now().Add(exp),
	})
}

func (s *sessionStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(context.Background(), key)
}

func (s *sessionStorage) Reset() error {
	return errResetUnsupported
}

func (s *sessionStorage) Close() error {
	return nil
}
