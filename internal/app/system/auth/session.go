package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"github.com/ezhangle/elle/internal/app/system/tokens"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const tokenKey = "token"

// Backend persists sessions. The Mongo and Redis stores implement it.
type Backend interface {
	Create(ctx context.Context, sess sessionstore.Session) error
	Get(ctx context.Context, token string) (*sessionstore.Session, error)
	Delete(ctx context.Context, token string) error
}

// UserFetcher loads the user behind a session on every request.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager issues and resolves session tokens. A token travels in the
// Authorization header (with or without a Bearer prefix) or inside a signed
// cookie.
type SessionManager struct {
	cookies *sessions.CookieStore
	name    string
	ttl     time.Duration
	backend Backend
	fetcher UserFetcher
	log     *zap.Logger
	now     func() time.Time
}

// NewSessionManager builds a manager. sessionKey signs the cookie and must
// be at least 32 characters.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, backend Backend, fetcher UserFetcher, logger *zap.Logger) (*SessionManager, error) {
	if len(sessionKey) < 32 {
		return nil, fmt.Errorf("session key must be at least 32 characters, got %d", len(sessionKey))
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if backend == nil || fetcher == nil {
		return nil, errors.New("session backend and user fetcher are required")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session manager initialized",
		zap.String("cookie", name),
		zap.Duration("ttl", ttl),
		zap.Bool("secure", secure))

	return &SessionManager{
		cookies: store,
		name:    name,
		ttl:     ttl,
		backend: backend,
		fetcher: fetcher,
		log:     logger,
		now:     time.Now,
	}, nil
}

// LoadSessionUser records the client and, when the request carries a live
// session token, injects the session user into the request context.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClient(r.Context(), ClientFromRequest(r))
		if u := m.resolve(ctx, r); u != nil {
			ctx = WithUser(ctx, u)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionManager) resolve(ctx context.Context, r *http.Request) *SessionUser {
	token := m.tokenFromRequest(r)
	if token == "" {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	sess, err := m.backend.Get(lookupCtx, token)
	if err != nil {
		if !errors.Is(err, sessionstore.ErrNotFound) {
			m.log.Error("session lookup failed", zap.Error(err))
		}
		return nil
	}
	u := m.fetcher.FetchUser(ctx, sess.UserID.Hex())
	if u == nil {
		return nil
	}
	u.Token = token
	return u
}

func (m *SessionManager) tokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			h = strings.TrimSpace(h[7:])
		}
		if tokens.Valid(h) {
			return h
		}
		return ""
	}

	sess, err := m.cookies.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Warn("session cookie invalid, ignoring", zap.Error(err))
		}
		return ""
	}
	if v, ok := sess.Values[tokenKey].(string); ok && tokens.Valid(v) {
		return v
	}
	return ""
}

// Open creates a session for userID and returns its token.
func (m *SessionManager) Open(ctx context.Context, userID primitive.ObjectID) (string, error) {
	token, err := tokens.New()
	if err != nil {
		return "", err
	}
	client := ClientFrom(ctx)
	now := m.now().UTC()
	err = m.backend.Create(ctx, sessionstore.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Close destroys the session behind token. An already missing session is
// not an error.
func (m *SessionManager) Close(ctx context.Context, token string) error {
	if err := m.backend.Delete(ctx, token); err != nil && !errors.Is(err, sessionstore.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SetCookie stores token in the signed session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.cookies.Get(r, m.name) // a bad cookie still yields a fresh session
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.cookies.Get(r, m.name)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
