package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	FullName string
	Email    string
	Token    string
}

// DefaultUser returns a TestUser with a fresh id.
func DefaultUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		FullName: "Test User",
		Email:    "user@test.com",
		Token:    strings.Repeat("ab", 32),
	}
}

// SessionUser converts u to the type the session middleware injects.
func (u TestUser) SessionUser() *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID, Email: u.Email, FullName: u.FullName, Token: u.Token}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, user.SessionUser())
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is fields encoded as a JSON object.
func NewJSONRequest(method, target string, fields map[string]any) *http.Request {
	b, _ := json.Marshal(fields)
	req := httptest.NewRequest(method, target, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewFormRequest creates a form-encoded request.
func NewFormRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

type errorfer interface {
	Errorf(string, ...any)
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t errorfer, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t errorfer, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// JSON decodes the body as a JSON object. It returns nil when the body is
// not an object.
func (r *ResponseRecorder) JSON() map[string]any {
	var out map[string]any
	if err := json.Unmarshal(r.Body.Bytes(), &out); err != nil {
		return nil
	}
	return out
}

// AssertEnvelope checks success and, for failures, the error message.
func (r *ResponseRecorder) AssertEnvelope(t errorfer, success bool, errMsg string) {
	body := r.JSON()
	if body == nil {
		t.Errorf("response is not a JSON object: %q", r.Body.String())
		return
	}
	if got, _ := body["success"].(bool); got != success {
		t.Errorf("success: got %v, want %v (body %s)", body["success"], success, r.Body.String())
	}
	if success {
		return
	}
	if got, _ := body["error"].(string); got != errMsg {
		t.Errorf("error: got %q, want %q", got, errMsg)
	}
}
