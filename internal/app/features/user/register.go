// internal/app/features/user/register.go
package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	"github.com/ezhangle/elle/internal/app/store/invitations"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/formutil"
	"github.com/ezhangle/elle/internal/app/system/htmlsanitize"
	"github.com/ezhangle/elle/internal/app/system/identity"
	"github.com/ezhangle/elle/internal/app/system/inputval"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgLogoutFirst       = "Please logout before any register attempt"
	msgEmailRegistered   = "This email is already registered"
	msgInvalidActivation = "invalid activation code"
	msgCodeMandatory     = "Field 'activation_code' is mandatory"
)

// RegisterInput is a decoded registration request. Password is the
// client-side digest of the real password.
type RegisterInput struct {
	Email          string `validate:"required,emailish" label:"email"`
	FullName       string `validate:"required,min=3,max=90" label:"fullname" msg:"fullname must be between 3 and 90 characters"`
	Password       string `validate:"required,len=64" label:"password" msg:"password must be exactly 64 characters"`
	AdminToken     string `validate:"-"`
	ActivationCode string `validate:"omitempty,len=64,hexadecimal" label:"activation_code" msg:"invalid activation code"`
}

// RegisterInputFromFields reads a registration request. Values are trimmed
// and the full name loses any markup.
func RegisterInputFromFields(f formutil.Fields) RegisterInput {
	return RegisterInput{
		Email:          normalize.Email(f.Get("email")),
		FullName:       normalize.Name(htmlsanitize.StripTags(f.Get("fullname"))),
		Password:       normalize.Field(f.Get("password")),
		AdminToken:     f.Get("admin_token"),
		ActivationCode: normalize.Field(f.Get("activation_code")),
	}
}

// ServeRegister handles POST /register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	fields, err := formutil.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, apierrors.Validation(err.Error()))
		return
	}
	u, _ := auth.CurrentUser(r)
	if err := h.Register(r.Context(), u, RegisterInputFromFields(fields)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	apierrors.WriteOK(w, nil)
}

// Register creates an account. It does not log the new user in.
func (h *Handler) Register(ctx context.Context, u *auth.SessionUser, in RegisterInput) error {
	if u != nil {
		return apierrors.State(msgLogoutFirst)
	}

	msgs := inputval.Validate(in).Messages()
	if h.Config.RequireInvitation && in.ActivationCode == "" {
		msgs = append(msgs, msgCodeMandatory)
	}
	if len(msgs) > 0 {
		return apierrors.Validation(msgs...)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	exists, err := h.Users.EmailExists(lookupCtx, in.Email)
	cancel()
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return apierrors.Conflicts(msgEmailRegistered)
	}

	var inv *models.Invitation
	if in.ActivationCode != "" {
		verifyCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
		inv, err = h.Invitations.Verify(verifyCtx, in.Email, in.ActivationCode)
		cancel()
		if err != nil {
			if errors.Is(err, invitations.ErrInvalidCode) {
				return apierrors.Validation(msgInvalidActivation)
			}
			return fmt.Errorf("verify activation code: %w", err)
		}
	}

	// The identity is bound to the user id, so the id is allocated first.
	userID := primitive.NewObjectID()

	idCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	ident, err := h.Identities.Generate(idCtx, identity.Request{
		UserID:            userID.Hex(),
		Email:             in.Email,
		PasswordDigest:    in.Password,
		AuthorityPath:     h.Config.AuthorityPath,
		AuthorityPassword: h.Config.AuthorityPassword,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	hash, err := h.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	createCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	created, err := h.Users.Create(createCtx, models.User{
		ID:        userID,
		Email:     in.Email,
		FullName:  in.FullName,
		Password:  hash,
		Identity:  ident.Identity,
		PublicKey: ident.PublicKey,
	})
	cancel()
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return apierrors.Conflicts(msgEmailRegistered)
		}
		return fmt.Errorf("create user: %w", err)
	}

	if inv != nil {
		acceptCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
		err := h.Invitations.Accept(acceptCtx, inv.ID, created.ID)
		cancel()
		if err != nil {
			// The account exists either way; a lost race only leaves the
			// invitation pending.
			h.Log.Warn("accept invitation failed",
				zap.String("email", created.Email),
				zap.String("invitation_id", inv.ID.Hex()),
				zap.Error(err))
		} else {
			h.Audit.InvitationAccepted(ctx, created.ID, created.Email)
		}
	}

	h.Audit.UserRegistered(ctx, created.ID, created.Email, inv != nil)
	h.Log.Info("user registered", zap.String("user_id", created.ID.Hex()), zap.String("email", created.Email))
	return nil
}
