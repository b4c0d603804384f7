// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/waffle/config"
	healthfeature "github.com/ezhangle/elle/internal/app/features/health"
	invitefeature "github.com/ezhangle/elle/internal/app/features/invite"
	userfeature "github.com/ezhangle/elle/internal/app/features/user"
	"github.com/ezhangle/elle/internal/app/store/audit"
	"github.com/ezhangle/elle/internal/app/store/invitations"
	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/auditlog"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/identity"
	"github.com/ezhangle/elle/internal/app/system/mailer"
	"github.com/ezhangle/elle/internal/app/system/requestlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// services are the feature handlers and the middleware they depend on.
type services struct {
	sessions *auth.SessionManager
	health   *healthfeature.Handler
	invite   *invitefeature.Handler
	user     *userfeature.Handler
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	var (
		backend      auth.Backend = sessionstore.New(db)
		sessionsPing healthfeature.Pinger
	)
	if deps.Redis != nil {
		backend = deps.Redis
		sessionsPing = deps.Redis
	}

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionTTL, secure, backend, userstore.NewFetcher(db), logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	transport, err := newMailTransport(appCfg)
	if err != nil {
		return nil, err
	}
	mail := mailer.New(transport, mailer.Sender{Name: appCfg.MailFromName, Address: appCfg.MailFrom}, logger)

	audits := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	started.mu.Lock()
	issuer := started.issuer
	started.mu.Unlock()
	if issuer == nil {
		issuer = identity.NewIssuer(appCfg.IdentityWorkFactor)
	}

	s := services{
		sessions: sessionMgr,
		health:   healthfeature.NewHandler(healthfeature.MongoPinger{Client: deps.MongoClient}, sessionsPing, logger),
		invite:   invitefeature.NewHandler(invitations.New(db), mail, audits, appCfg.AdminToken, appCfg.DownloadURL, logger),
		user: userfeature.NewHandler(userstore.New(db), invitations.New(db), sessionMgr, issuer, audits, userfeature.Config{
			AuthorityPath:     appCfg.AuthorityPath,
			AuthorityPassword: appCfg.AuthorityPassword,
			RequireInvitation: appCfg.RequireInvitation,
		}, logger),
	}
	return newRouter(s, logger), nil
}

// newRouter mounts every feature behind the shared middleware stack.
func newRouter(s services, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestlog.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestlog.AccessLog(logger))
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(s.health))

	// Everything else may act on the caller's session.
	r.Group(func(r chi.Router) {
		r.Use(s.sessions.LoadSessionUser)
		invitefeature.MountRoutes(r, s.invite)
		userfeature.MountRoutes(r, s.user)
	})

	return r
}

func newMailTransport(appCfg AppConfig) (mailer.Transport, error) {
	switch appCfg.MailBackend {
	case MailBackendSMTP:
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			Username: appCfg.MailSMTPUser,
			Password: appCfg.MailSMTPPass,
		}), nil
	case MailBackendSendGrid:
		return mailer.NewSendGrid(appCfg.SendGridAPIKey), nil
	}
	return nil, fmt.Errorf("unknown mail backend %q", appCfg.MailBackend)
}
