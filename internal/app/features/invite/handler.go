// internal/app/features/invite/handler.go
package invite

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	"github.com/ezhangle/elle/internal/app/store/invitations"
	"github.com/ezhangle/elle/internal/app/system/auditlog"
	"github.com/ezhangle/elle/internal/app/system/formutil"
	"github.com/ezhangle/elle/internal/app/system/inputval"
	"github.com/ezhangle/elle/internal/app/system/mailer"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"github.com/ezhangle/elle/internal/app/system/tokens"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.uber.org/zap"
)

// Messages returned to the client.
const (
	msgNotAdmin       = "You're not admin"
	msgAlreadyInvited = "Already invited!"
)

// Ledger is the part of the invitation store the handler needs.
type Ledger interface {
	GetByEmail(ctx context.Context, email string) (*models.Invitation, error)
	DeleteByEmail(ctx context.Context, email string) error
	Create(ctx context.Context, email, code string) (*models.Invitation, error)
}

// MailSender delivers one message.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Email) error
}

// Handler serves POST /invite.
type Handler struct {
	Ledger      Ledger
	Mail        MailSender
	Audit       *auditlog.Logger
	AdminToken  string
	DownloadURL string
	ErrLog      *apierrors.ErrorLogger
	Log         *zap.Logger
}

// NewHandler creates an invite handler. An empty adminToken rejects every
// request.
func NewHandler(ledger Ledger, mail MailSender, audit *auditlog.Logger, adminToken, downloadURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger:      ledger,
		Mail:        mail,
		Audit:       audit,
		AdminToken:  adminToken,
		DownloadURL: downloadURL,
		ErrLog:      apierrors.NewErrorLogger(logger),
		Log:         logger,
	}
}

// Input is a decoded invite request.
type Input struct {
	Email      string `validate:"required,emailish" label:"email"`
	AdminToken string `validate:"-"`
	Force      bool   `validate:"-"`
}

// InputFromFields reads an invite request.
func InputFromFields(f formutil.Fields) Input {
	force, present := f.Lookup("force")
	return Input{
		Email:      normalize.Email(f.Get("email")),
		AdminToken: f.Get("admin_token"),
		Force:      normalize.Flag(force, present),
	}
}

// ServeInvite handles POST /invite.
func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	fields, err := formutil.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, apierrors.Validation(err.Error()))
		return
	}
	if err := h.Invite(r.Context(), InputFromFields(fields)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	apierrors.WriteOK(w, nil)
}

// Invite sends a fresh activation code to in.Email and records the
// invitation. The mail goes out before anything is written, so a failed
// delivery leaves no trace.
func (h *Handler) Invite(ctx context.Context, in Input) error {
	if !h.isAdmin(in.AdminToken) {
		h.Audit.InvitationDenied(ctx, in.Email, "bad admin token")
		return apierrors.Authorization(msgNotAdmin)
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return apierrors.Validation(res.Messages()...)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	existing, err := h.Ledger.GetByEmail(lookupCtx, in.Email)
	cancel()
	if err != nil && !errors.Is(err, invitations.ErrNotFound) {
		return fmt.Errorf("look up invitation: %w", err)
	}

	reissued := existing != nil
	if reissued {
		if !in.Force {
			return apierrors.Conflict(msgAlreadyInvited)
		}
		delCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
		err := h.Ledger.DeleteByEmail(delCtx, in.Email)
		cancel()
		if err != nil {
			return fmt.Errorf("delete old invitation: %w", err)
		}
	}

	code, err := tokens.New()
	if err != nil {
		return fmt.Errorf("generate activation code: %w", err)
	}

	msg := mailer.BuildInvitationEmail(in.Email, mailer.InvitationEmailData{
		DownloadURL:    h.DownloadURL,
		ActivationCode: code,
	})
	mailCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	err = h.Mail.Send(mailCtx, msg)
	cancel()
	if err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}

	saveCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	_, err = h.Ledger.Create(saveCtx, in.Email, code)
	cancel()
	if err != nil {
		if errors.Is(err, invitations.ErrAlreadyInvited) {
			// Lost a race with a concurrent invite for the same address.
			return apierrors.Conflict(msgAlreadyInvited)
		}
		return fmt.Errorf("save invitation: %w", err)
	}

	h.Audit.InvitationSent(ctx, in.Email, reissued)
	h.Log.Info("invitation sent", zap.String("email", in.Email), zap.Bool("reissued", reissued))
	return nil
}

func (h *Handler) isAdmin(token string) bool {
	if h.AdminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.AdminToken)) == 1
}
