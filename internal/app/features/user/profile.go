// internal/app/features/user/profile.go
package user

import (
	"context"
	"errors"
	"fmt"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgNotLoggedIn = "Not logged in"

// Self returns the caller's own profile.
func (h *Handler) Self(ctx context.Context, u *auth.SessionUser) (models.Profile, error) {
	if u == nil {
		return models.Profile{}, apierrors.Authentication(msgNotLoggedIn)
	}
	oid, err := u.ObjectID()
	if err != nil {
		return models.Profile{}, apierrors.Authentication(msgNotLoggedIn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	usr, err := h.Users.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			// Session outlived its user.
			return models.Profile{}, apierrors.Authentication(msgNotLoggedIn)
		}
		return models.Profile{}, fmt.Errorf("load self: %w", err)
	}
	return usr.Profile(), nil
}

// Logout destroys the caller's session.
func (h *Handler) Logout(ctx context.Context, u *auth.SessionUser) error {
	if u == nil {
		return apierrors.Authentication(msgNotLoggedIn)
	}

	closeCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if err := h.Sessions.Close(closeCtx, u.Token); err != nil {
		return err
	}
	h.Audit.Logout(ctx, u.ID, u.Email)
	return nil
}

func userNotFound(idOrEmail string) error {
	return apierrors.NotFound(fmt.Sprintf("Couldn't find user for id '%s'", idOrEmail))
}

// Lookup returns the public part of the user named by an id or an email.
// An id that is not a valid ObjectID simply matches nobody.
func (h *Handler) Lookup(ctx context.Context, idOrEmail string) (models.PublicProfile, error) {
	notFound := userNotFound(idOrEmail)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var (
		usr *models.User
		err error
	)
	if value, isEmail := normalize.IDOrEmail(idOrEmail); isEmail {
		usr, err = h.Users.GetByEmail(ctx, value)
	} else {
		oid, perr := primitive.ObjectIDFromHex(value)
		if perr != nil {
			return models.PublicProfile{}, notFound
		}
		usr, err = h.Users.GetByID(ctx, oid)
	}
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.PublicProfile{}, notFound
		}
		return models.PublicProfile{}, fmt.Errorf("look up user: %w", err)
	}
	return usr.Public(), nil
}
