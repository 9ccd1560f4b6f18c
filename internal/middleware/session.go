package middleware

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionKey = "session_key"
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionExpired  = errors.New("session expired")
)

type SessionManager struct {
	impl     *scs.SessionManager
	lifetime time.Duration
	now      func() time.Time
}

type SessionParams struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// NewSessionManager uses Redis when session.redis_addr is set and the scs
// in-memory store otherwise.
func NewSessionManager(p SessionParams) (*SessionManager, error) {
	var store scs.Store
	if addr := p.Config.Session.RedisAddr; addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: p.Config.Session.RedisPassword,
		})
		p.LC.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		store = NewRedisStore(client)
		p.Log.Info("session store: redis", zap.String("addr", addr))
	} else {
		store = memstore.New()
		p.Log.Info("session store: memory")
	}

	return newSessionManager(p.Config.Session, store), nil
}

func newSessionManager(cfg config.Session, store scs.Store) *SessionManager {
	gob.Register(&model.Session{})

	impl := scs.New()
	impl.Store = store
	impl.Lifetime = cfg.Lifetime
	impl.IdleTimeout = cfg.IdleTimeout
	impl.Cookie.Name = cfg.CookieName
	impl.Cookie.HttpOnly = true
	impl.Cookie.Secure = cfg.CookieSecure
	impl.Cookie.SameSite = http.SameSiteLaxMode
	impl.Cookie.Path = "/"

	return &SessionManager{
		impl:     impl,
		lifetime: cfg.Lifetime,
		now:      time.Now,
	}
}

func (s *SessionManager) Wrap(next http.Handler) http.Handler {
	return s.impl.LoadAndSave(next)
}

// Get returns the current session only if it is valid. Absent and expired
// sessions are both errors.
func (s *SessionManager) Get(ctx context.Context) (*model.Session, error) {
	session, ok := s.impl.Get(ctx, sessionKey).(*model.Session)
	if !ok {
		return nil, errSessionNotFound
	}

	if !session.Valid(s.now()) {
		return nil, errSessionExpired
	}

	return session, nil
}

// SetAuthenticated starts a fresh session for identity. The session token is
// renewed so a pre-login token cannot be reused.
func (s *SessionManager) SetAuthenticated(ctx context.Context, identity model.Identity) error {
	if identity.ID == "" {
		return errSessionNotFound
	}

	if err := s.impl.RenewToken(ctx); err != nil {
		return err
	}

	now := s.now()
	session := &model.Session{
		UserID:    identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		Provider:  identity.Provider,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.lifetime),
	}

	s.impl.Put(ctx, sessionKey, session)
	return nil
}

func (s *SessionManager) Destroy(ctx context.Context) error {
	return s.impl.Destroy(ctx)
}

// PutString and PopString carry short-lived values such as flash messages.
func (s *SessionManager) PutString(ctx context.Context, key, value string) {
	s.impl.Put(ctx, key, value)
}

func (s *SessionManager) PopString(ctx context.Context, key string) string {
	return s.impl.PopString(ctx, key)
}
