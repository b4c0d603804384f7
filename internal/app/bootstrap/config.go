// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/ezhangle/elle/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for meta.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: META_MONGO_URI, META_ADMIN_TOKEN, etc.
//   - Command-line flags: --mongo_uri, --admin_token, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "meta", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Sessions
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "meta-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "720h", Desc: "Session lifetime (e.g., 720h, 24h)"},
	{Name: "session_backend", Default: SessionBackendMongo, Desc: "Session store: 'mongo' or 'redis'"},
	{Name: "redis_url", Default: "redis://localhost:6379/0", Desc: "Redis URL for the redis session store"},
	{Name: "session_sweep_interval", Default: "10m", Desc: "Expired session sweep interval for the mongo store (0 disables)"},

	// Invitations and registration
	{Name: "admin_token", Default: "", Desc: "Admin token required to send invitations"},
	{Name: "require_invitation", Default: false, Desc: "Require an activation code to register"},
	{Name: "download_url", Default: "http://download.infinit.io/", Desc: "Download link placed in invitation emails"},

	// Identity authority
	{Name: "authority_path", Default: "", Desc: "Path to the age-encrypted authority key"},
	{Name: "authority_password", Default: "", Desc: "Passphrase of the authority key"},
	{Name: "identity_work_factor", Default: 0, Desc: "scrypt work factor for sealing user keys (0 = age default)"},

	// Mail
	{Name: "mail_backend", Default: MailBackendSMTP, Desc: "Mail transport: 'smtp' or 'sendgrid'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "no-reply@infinit.io", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Infinit.io", Desc: "From display name"},
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key for the sendgrid mail backend"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: auditlog.All, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, META_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "META", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:           appValues.String("session_key"),
		SessionName:          appValues.String("session_name"),
		SessionDomain:        appValues.String("session_domain"),
		SessionTTL:           appValues.Duration("session_ttl", 30*24*time.Hour),
		SessionBackend:       strings.ToLower(appValues.String("session_backend")),
		RedisURL:             appValues.String("redis_url"),
		SessionSweepInterval: appValues.Duration("session_sweep_interval", 10*time.Minute),

		AdminToken:        appValues.String("admin_token"),
		RequireInvitation: appValues.Bool("require_invitation"),
		DownloadURL:       appValues.String("download_url"),

		AuthorityPath:      appValues.String("authority_path"),
		AuthorityPassword:  appValues.String("authority_password"),
		IdentityWorkFactor: appValues.Int("identity_work_factor"),

		MailBackend:    strings.ToLower(appValues.String("mail_backend")),
		MailSMTPHost:   appValues.String("mail_smtp_host"),
		MailSMTPPort:   appValues.Int("mail_smtp_port"),
		MailSMTPUser:   appValues.String("mail_smtp_user"),
		MailSMTPPass:   appValues.String("mail_smtp_pass"),
		MailFrom:       appValues.String("mail_from"),
		MailFromName:   appValues.String("mail_from_name"),
		SendGridAPIKey: appValues.String("sendgrid_api_key"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Every check runs so that one start attempt reports every problem.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if strings.TrimSpace(appCfg.AdminToken) == "" {
		errs = append(errs, errors.New("admin_token must be set"))
	}
	if len(appCfg.SessionKey) < 32 {
		errs = append(errs, errors.New("session_key must be at least 32 characters"))
	}
	if appCfg.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if strings.TrimSpace(appCfg.AuthorityPath) == "" {
		errs = append(errs, errors.New("authority_path must be set"))
	}

	switch appCfg.SessionBackend {
	case SessionBackendMongo:
	case SessionBackendRedis:
		if appCfg.RedisURL == "" {
			errs = append(errs, errors.New("session_backend 'redis' requires redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session_backend %q (want 'mongo' or 'redis')", appCfg.SessionBackend))
	}

	switch appCfg.MailBackend {
	case MailBackendSMTP:
		if appCfg.MailSMTPHost == "" {
			errs = append(errs, errors.New("mail_backend 'smtp' requires mail_smtp_host"))
		}
	case MailBackendSendGrid:
		if appCfg.SendGridAPIKey == "" {
			errs = append(errs, errors.New("mail_backend 'sendgrid' requires sendgrid_api_key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail_backend %q (want 'smtp' or 'sendgrid')", appCfg.MailBackend))
	}

	for _, v := range []struct{ key, val string }{
		{"audit_log_auth", appCfg.AuditLogAuth},
		{"audit_log_admin", appCfg.AuditLogAdmin},
	} {
		switch v.val {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			errs = append(errs, fmt.Errorf("unknown %s %q", v.key, v.val))
		}
	}

	return errors.Join(errs...)
}
