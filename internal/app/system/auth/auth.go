package auth

import (
	"context"
	"net"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helpers                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the caller resolved from a live session.
type SessionUser struct {
	ID       string
	Email    string
	FullName string
	Token    string // session token the caller presented
}

// ObjectID parses the user id.
func (u *SessionUser) ObjectID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(u.ID)
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	clientKey      ctxKey = "client"
)

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u := UserFromContext(r.Context())
	return u, u != nil
}

// UserFromContext returns the session user or nil.
func UserFromContext(ctx context.Context) *SessionUser {
	u, _ := ctx.Value(currentUserKey).(*SessionUser)
	return u
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser injects u into the request, bypassing the session middleware.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Client info                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Client describes where a request came from.
type Client struct {
	IP        string
	UserAgent string
}

// ClientFromRequest reads the client from r. RemoteAddr is expected to have
// been rewritten by chi's RealIP middleware when running behind a proxy.
func ClientFromRequest(r *http.Request) Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Client{IP: ip, UserAgent: r.UserAgent()}
}

// WithClient returns ctx carrying c.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// ClientFrom returns the client stored in ctx, or the zero Client.
func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey).(Client)
	return c
}
