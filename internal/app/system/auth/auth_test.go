package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memBackend struct {
	mu   sync.Mutex
	m    map[string]sessionstore.Session
	fail error
}

func newMemBackend() *memBackend { return &memBackend{m: map[string]sessionstore.Session{}} }

func (b *memBackend) Create(_ context.Context, s sessionstore.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[s.Token] = s
	return nil
}

func (b *memBackend) Get(_ context.Context, token string) (*sessionstore.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	s, ok := b.m[token]
	if !ok || s.Expired(time.Now()) {
		return nil, sessionstore.ErrNotFound
	}
	return &s, nil
}

func (b *memBackend) Delete(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[token]; !ok {
		return sessionstore.ErrNotFound
	}
	delete(b.m, token)
	return nil
}

type mapFetcher map[string]*auth.SessionUser

func (f mapFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	u, ok := f[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

const testKey = "test-session-key-must-be-32-chars-long"

func newManager(t *testing.T, b auth.Backend, f auth.UserFetcher) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testKey, "meta-session", "", time.Hour, false, b, f, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

func TestNewSessionManager_Validation(t *testing.T) {
	b, f := newMemBackend(), mapFetcher{}
	tests := []struct {
		name string
		key  string
		ttl  time.Duration
		b    auth.Backend
		f    auth.UserFetcher
	}{
		{"short key", "short", time.Hour, b, f},
		{"zero ttl", testKey, 0, b, f},
		{"no backend", testKey, time.Hour, nil, f},
		{"no fetcher", testKey, time.Hour, b, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.NewSessionManager(tt.key, "n", "", tt.ttl, false, tt.b, tt.f, zap.NewNop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// captured runs the middleware and returns what the handler saw.
func captured(sm *auth.SessionManager, r *http.Request) (*auth.SessionUser, auth.Client) {
	var u *auth.SessionUser
	var c auth.Client
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ = auth.CurrentUser(r)
		c = auth.ClientFrom(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	return u, c
}

func TestOpenAndResolve(t *testing.T) {
	b := newMemBackend()
	uid := primitive.NewObjectID()
	f := mapFetcher{uid.Hex(): {ID: uid.Hex(), Email: "a@example.com", FullName: "Alice"}}
	sm := newManager(t, b, f)

	ctx := auth.WithClient(context.Background(), auth.Client{IP: "10.1.2.3", UserAgent: "ua"})
	token, err := sm.Open(ctx, uid)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("token length = %d", len(token))
	}
	stored := b.m[token]
	if stored.UserID != uid || stored.IP != "10.1.2.3" || stored.UserAgent != "ua" {
		t.Errorf("stored session = %+v", stored)
	}
	if d := stored.ExpiresAt.Sub(stored.CreatedAt); d != time.Hour {
		t.Errorf("expiry = %v, want 1h", d)
	}

	for _, header := range []string{"Bearer " + token, "bearer " + token, token} {
		r := httptest.NewRequest("GET", "/self", nil)
		r.Header.Set("Authorization", header)
		r.RemoteAddr = "192.0.2.1:5555"
		r.Header.Set("User-Agent", "tester")
		u, c := captured(sm, r)
		if u == nil {
			t.Fatalf("header %q: expected user", header)
		}
		if u.ID != uid.Hex() || u.Token != token || u.FullName != "Alice" {
			t.Errorf("user = %+v", u)
		}
		if c.IP != "192.0.2.1" || c.UserAgent != "tester" {
			t.Errorf("client = %+v", c)
		}
	}
}

func TestResolve_Anonymous(t *testing.T) {
	b := newMemBackend()
	uid := primitive.NewObjectID()
	sm := newManager(t, b, mapFetcher{})

	token, err := sm.Open(context.Background(), uid)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed token", "Bearer not-a-token"},
		{"unknown token", "Bearer " + strings.Repeat("ab", 32)},
		{"user deleted", "Bearer " + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/self", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if u, _ := captured(sm, r); u != nil {
				t.Errorf("expected anonymous, got %+v", u)
			}
		})
	}
}

func TestResolve_BackendError(t *testing.T) {
	b := newMemBackend()
	b.fail = errors.New("db down")
	sm := newManager(t, b, mapFetcher{})

	r := httptest.NewRequest("GET", "/self", nil)
	r.Header.Set("Authorization", strings.Repeat("ab", 32))
	if u, _ := captured(sm, r); u != nil {
		t.Error("expected anonymous on backend failure")
	}
}

func TestCookieRoundTrip(t *testing.T) {
	b := newMemBackend()
	uid := primitive.NewObjectID()
	sm := newManager(t, b, mapFetcher{uid.Hex(): {ID: uid.Hex(), Email: "c@example.com"}})

	token, err := sm.Open(context.Background(), uid)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := sm.SetCookie(rec, httptest.NewRequest("POST", "/login", nil), token); err != nil {
		t.Fatalf("SetCookie: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "meta-session" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	r := httptest.NewRequest("GET", "/self", nil)
	r.AddCookie(cookies[0])
	u, _ := captured(sm, r)
	if u == nil || u.Token != token {
		t.Fatalf("expected cookie session, got %+v", u)
	}

	rec = httptest.NewRecorder()
	if err := sm.ClearCookie(rec, httptest.NewRequest("GET", "/logout", nil)); err != nil {
		t.Fatalf("ClearCookie: %v", err)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected expiring cookie, got %+v", cleared)
	}
}

func TestResolve_TamperedCookie(t *testing.T) {
	sm := newManager(t, newMemBackend(), mapFetcher{})
	r := httptest.NewRequest("GET", "/self", nil)
	r.AddCookie(&http.Cookie{Name: "meta-session", Value: "garbage"})
	if u, _ := captured(sm, r); u != nil {
		t.Error("expected anonymous for tampered cookie")
	}
}

func TestClose(t *testing.T) {
	b := newMemBackend()
	sm := newManager(t, b, mapFetcher{})

	token, err := sm.Open(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sm.Close(context.Background(), token); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := b.m[token]; ok {
		t.Error("session still stored")
	}
	if err := sm.Close(context.Background(), token); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWithTestUser(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := auth.CurrentUser(r); ok {
		t.Fatal("expected no user")
	}
	r = auth.WithTestUser(r, &auth.SessionUser{ID: "x"})
	u, ok := auth.CurrentUser(r)
	if !ok || u.ID != "x" {
		t.Errorf("CurrentUser = %+v, %v", u, ok)
	}
}

func TestClientFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[2001:db8::1]:443"
	if c := auth.ClientFromRequest(r); c.IP != "2001:db8::1" {
		t.Errorf("IP = %q", c.IP)
	}
	r.RemoteAddr = "203.0.113.9"
	if c := auth.ClientFromRequest(r); c.IP != "203.0.113.9" {
		t.Errorf("IP = %q", c.IP)
	}
}
