// internal/app/features/user/handler.go
package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	"github.com/ezhangle/elle/internal/app/system/auditlog"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/identity"
	"github.com/ezhangle/elle/internal/app/system/passwords"
	"github.com/ezhangle/elle/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the user directory.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u models.User) (models.User, error)
}

// Invitations redeems activation codes.
type Invitations interface {
	Verify(ctx context.Context, email, code string) (*models.Invitation, error)
	Accept(ctx context.Context, id, userID primitive.ObjectID) error
}

// Sessions opens and closes sessions and carries their token in a cookie.
type Sessions interface {
	Open(ctx context.Context, userID primitive.ObjectID) (string, error)
	Close(ctx context.Context, token string) error
	SetCookie(w http.ResponseWriter, r *http.Request, token string) error
	ClearCookie(w http.ResponseWriter, r *http.Request) error
}

// IdentityIssuer mints the identity stored on a new user.
type IdentityIssuer interface {
	Generate(ctx context.Context, req identity.Request) (identity.Result, error)
}

// Config holds the registration settings.
type Config struct {
	AuthorityPath     string
	AuthorityPassword string
	// RequireInvitation makes an activation code mandatory at registration.
	RequireInvitation bool
}

// Handler serves the account endpoints.
type Handler struct {
	Users       Users
	Invitations Invitations
	Sessions    Sessions
	Identities  IdentityIssuer
	Audit       *auditlog.Logger
	Config      Config

	// Password hashing, swappable so tests can use cheap parameters.
	HashPassword   func(secret string) (string, error)
	VerifyPassword func(secret, encoded string) (bool, error)

	ErrLog *apierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler creates the user handler with argon2id password hashing.
func NewHandler(users Users, invites Invitations, sessions Sessions, issuer IdentityIssuer, audit *auditlog.Logger, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		Users:          users,
		Invitations:    invites,
		Sessions:       sessions,
		Identities:     issuer,
		Audit:          audit,
		Config:         cfg,
		HashPassword:   passwords.Hash,
		VerifyPassword: passwords.Verify,
		ErrLog:         apierrors.NewErrorLogger(logger),
		Log:            logger,
	}
}

// ServeSelf handles GET /self and GET /user.
func (h *Handler) ServeSelf(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	profile, err := h.Self(r.Context(), u)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	apierrors.WriteOK(w, struct {
		apierrors.Envelope
		models.Profile
	}{apierrors.OK(), profile})
}

// ServeLogout handles GET /logout and GET /user/logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	if err := h.Logout(r.Context(), u); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := h.Sessions.ClearCookie(w, r); err != nil {
		h.Log.Warn("clear session cookie failed", zap.Error(err))
	}
	apierrors.WriteOK(w, nil)
}

// ServeLookup handles GET /user/{id_or_email}. chi hands over the raw path
// segment, so an escaped email (a%40b.io) is decoded first.
func (h *Handler) ServeLookup(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "idOrEmail")
	key, err := url.PathUnescape(raw)
	if err != nil {
		h.ErrLog.Write(w, r, userNotFound(raw))
		return
	}
	pub, err := h.Lookup(r.Context(), key)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	apierrors.WriteOK(w, struct {
		apierrors.Envelope
		models.PublicProfile
	}{apierrors.OK(), pub})
}

// ServeAction handles POST /user/{action}. Only register and login exist;
// anything else is a programming error on the client side and panics.
func (h *Handler) ServeAction(w http.ResponseWriter, r *http.Request) {
	switch action := chi.URLParam(r, "action"); action {
	case "register":
		h.ServeRegister(w, r)
	case "login":
		h.ServeLogin(w, r)
	default:
		panic(fmt.Sprintf("unknown action: %s", action))
	}
}
