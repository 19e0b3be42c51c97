package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

const sessionKey = "session/current"

// refreshSkew renews the access token slightly before its recorded expiry
// so in-flight requests do not race the deadline.
const refreshSkew = 30 * time.Second

// SessionStore owns the credential lifecycle: the session is mutated only
// through login, refresh and logout, persisted on every change, and
// restored once at startup. It doubles as the API client's token source.
type SessionStore struct {
	kv     ports.KVStore
	auth   ports.AuthAPI
	clock  ports.Clock
	logger *slog.Logger

	refresh singleflight.Group

	mu        sync.RWMutex
	current   *domain.Session
	onExpired func(context.Context)
}

func NewSessionStore(kv ports.KVStore, auth ports.AuthAPI, clock ports.Clock, logger *slog.Logger) *SessionStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionStore{kv: kv, auth: auth, clock: clock, logger: logger}
}

// SetExpiryHook registers fn to run whenever the session dies because the
// server no longer accepts its tokens. The facade wires it to the full
// logout cascade, so session-scoped caches and polls are torn down even
// when the expiry is discovered deep inside a fetch.
func (s *SessionStore) SetExpiryHook(fn func(context.Context)) {
	s.mu.Lock()
	s.onExpired = fn
	s.mu.Unlock()
}

// Restore loads the persisted session. Corrupt or invariant-violating blobs
// are discarded rather than treated as fatal: the user just logs in again.
func (s *SessionStore) Restore(ctx context.Context) (domain.Session, bool) {
	data, err := s.kv.Get(ctx, sessionKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("load persisted session failed", "error", err)
		}
		return domain.Session{}, false
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil || !session.Valid() {
		s.logger.Warn("discarding corrupt persisted session")
		_ = s.kv.Delete(ctx, sessionKey)
		return domain.Session{}, false
	}

	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()
	return session, true
}

// Current returns the in-memory session, if any.
func (s *SessionStore) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

func (s *SessionStore) Login(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	session, err := s.auth.Login(ctx, creds)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := s.adopt(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *SessionStore) Signup(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	session, err := s.auth.Signup(ctx, creds)
	if err != nil {
		return domain.Session{}, fmt.Errorf("signup: %w", err)
	}
	if err := s.adopt(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Token returns an access token valid at call time, refreshing first when
// the stored expiry has passed (or is unknown while a refresh token
// exists). Fails with domain.ErrAuthRequired when no session exists and
// domain.ErrAuthExpired when renewal is impossible; the latter clears the
// session so the caller is forced back to login.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	session, ok := s.Current()
	if !ok {
		return "", domain.ErrAuthRequired
	}

	needsRefresh := session.ExpiringSoon(s.clock.Now(), refreshSkew) ||
		(session.Expiry.IsZero() && session.RefreshToken != "")
	if !needsRefresh {
		return session.AccessToken, nil
	}

	return s.refreshShared(ctx)
}

// ForceRefresh renews the session unconditionally. It backs the API
// client's single retry after a 401.
func (s *SessionStore) ForceRefresh(ctx context.Context) (string, error) {
	return s.refreshShared(ctx)
}

// refreshShared serializes renewal: concurrent callers await the same
// refresh call and receive the same resulting token.
func (s *SessionStore) refreshShared(ctx context.Context) (string, error) {
	token, err, _ := s.refresh.Do("refresh", func() (any, error) {
		session, ok := s.Current()
		if !ok {
			return "", domain.ErrAuthRequired
		}
		if session.RefreshToken == "" {
			s.Expire(ctx)
			return "", fmt.Errorf("no refresh token held: %w", domain.ErrAuthExpired)
		}

		renewed, err := s.auth.Refresh(ctx, session.RefreshToken)
		if err != nil {
			// A failed renewal is terminal for this session: expire it
			// instead of retrying a stale refresh token forever.
			s.Expire(ctx)
			return "", fmt.Errorf("refresh session: %w", errors.Join(domain.ErrAuthExpired, err))
		}

		// Persist before returning so a crash right after the refresh does
		// not lose the new token triple.
		if err := s.adopt(ctx, renewed); err != nil {
			return "", err
		}
		return renewed.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Logout clears the in-memory and persisted session. The facade cascades
// cache invalidation and poll cancellation around this call.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.clear(ctx)
	return nil
}

// Expire clears the session because renewal is impossible (stale refresh
// token, or the server rejecting a freshly renewed token) and runs the
// expiry hook. Also the 401 recovery dead end of the API client.
func (s *SessionStore) Expire(ctx context.Context) {
	s.clear(ctx)

	s.mu.RLock()
	hook := s.onExpired
	s.mu.RUnlock()
	if hook != nil {
		hook(ctx)
	}
}

func (s *SessionStore) adopt(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(ctx, sessionKey, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) clear(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, sessionKey); err != nil {
		s.logger.Warn("delete persisted session failed", "error", err)
	}
}
