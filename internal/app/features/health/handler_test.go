package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ezhangle/elle/internal/app/features/health"
	"github.com/ezhangle/elle/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingFunc(func(context.Context) error { return nil })
	down = pingFunc(func(context.Context) error { return errors.New("connection refused") })
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Sessions string `json:"sessions"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (int, response) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Mount("/health", health.Routes(h))
	r.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe(t *testing.T) {
	tests := []struct {
		name     string
		db       health.Pinger
		sessions health.Pinger
		code     int
		want     response
	}{
		{
			name: "mongo only",
			db:   up,
			code: http.StatusOK,
			want: response{Status: "ok", Database: "connected"},
		},
		{
			name:     "mongo and redis",
			db:       up,
			sessions: up,
			code:     http.StatusOK,
			want:     response{Status: "ok", Database: "connected", Sessions: "connected"},
		},
		{
			name: "database down",
			db:   down,
			code: http.StatusServiceUnavailable,
			want: response{Status: "error", Database: "disconnected", Message: "Database unavailable", Error: "connection refused"},
		},
		{
			name:     "session store down",
			db:       up,
			sessions: down,
			code:     http.StatusServiceUnavailable,
			want:     response{Status: "error", Database: "connected", Sessions: "disconnected", Message: "Session store unavailable", Error: "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(tt.db, tt.sessions, zap.NewNop())
			code, got := serve(t, h)
			if code != tt.code {
				t.Errorf("status code: got %d, want %d", code, tt.code)
			}
			if got != tt.want {
				t.Errorf("response: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServe_LiveMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := health.NewHandler(health.MongoPinger{Client: db.Client()}, nil, zap.NewNop())

	code, got := serve(t, h)
	if code != http.StatusOK || got.Database != "connected" {
		t.Errorf("got %d %+v", code, got)
	}
}
