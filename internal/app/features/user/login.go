// internal/app/features/user/login.go
package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/formutil"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	msgAlreadyLoggedIn = "Already logged in"
	msgWrongLogin      = "Wrong login/password"
)

// LoginInput is a decoded login request.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned to a client that logged in.
type LoginResult struct {
	Token    string `json:"token"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Identity string `json:"identity"`
}

// ServeLogin handles POST /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := formutil.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, apierrors.Validation(err.Error()))
		return
	}
	u, _ := auth.CurrentUser(r)
	res, err := h.Login(r.Context(), u, LoginInput{
		Email:    normalize.Email(fields.Get("email")),
		Password: normalize.Field(fields.Get("password")),
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := h.Sessions.SetCookie(w, r, res.Token); err != nil {
		h.Log.Warn("set session cookie failed", zap.Error(err))
	}
	apierrors.WriteOK(w, struct {
		apierrors.Envelope
		LoginResult
	}{apierrors.OK(), res})
}

// Login checks the credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the client.
func (h *Handler) Login(ctx context.Context, u *auth.SessionUser, in LoginInput) (LoginResult, error) {
	if u != nil {
		return LoginResult{}, apierrors.State(msgAlreadyLoggedIn)
	}
	if in.Email == "" || in.Password == "" {
		return LoginResult{}, apierrors.Authentication(msgWrongLogin)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	usr, err := h.Users.GetByEmail(lookupCtx, in.Email)
	cancel()
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.Audit.LoginFailedUserNotFound(ctx, in.Email)
			return LoginResult{}, apierrors.Authentication(msgWrongLogin)
		}
		return LoginResult{}, fmt.Errorf("look up user: %w", err)
	}

	ok, err := h.VerifyPassword(in.Password, usr.Password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password for %s: %w", usr.ID.Hex(), err)
	}
	if !ok {
		h.Audit.LoginFailedWrongPassword(ctx, usr.ID, usr.Email)
		return LoginResult{}, apierrors.Authentication(msgWrongLogin)
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	token, err := h.Sessions.Open(openCtx, usr.ID)
	cancel()
	if err != nil {
		return LoginResult{}, fmt.Errorf("open session: %w", err)
	}

	h.Audit.LoginSuccess(ctx, usr.ID, usr.Email)
	return LoginResult{
		Token:    token,
		FullName: usr.FullName,
		Email:    usr.Email,
		Identity: usr.Identity,
	}, nil
}
