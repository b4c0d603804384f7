// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (META_*), configuration
// files, or command-line flags (loaded in LoadConfig). Framework-level
// settings such as ports, TLS and log level live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session configuration
	SessionKey           string        // Secret key for signing session cookies (must be strong in production)
	SessionName          string        // Cookie name for sessions
	SessionDomain        string        // Cookie domain (blank means current host)
	SessionTTL           time.Duration // Lifetime of a session
	SessionBackend       string        // "mongo" or "redis"
	RedisURL             string        // redis:// URL, only used with the redis backend
	SessionSweepInterval time.Duration // How often expired Mongo sessions are purged (0 disables)

	// Invitations and registration
	AdminToken        string // Shared secret required by POST /invite
	RequireInvitation bool   // Registration needs an activation code
	DownloadURL       string // Link placed in invitation emails

	// Identity authority
	AuthorityPath      string // age-encrypted authority key file
	AuthorityPassword  string // Passphrase for the authority file
	IdentityWorkFactor int    // scrypt log2(N) used to seal user keys (0 = age default)

	// Mail configuration
	MailBackend    string // "smtp" or "sendgrid"
	MailSMTPHost   string
	MailSMTPPort   int
	MailSMTPUser   string
	MailSMTPPass   string
	MailFrom       string // From email address
	MailFromName   string // From display name
	SendGridAPIKey string

	// Audit logging
	AuditLogAuth  string // "all", "db", "log" or "off"
	AuditLogAdmin string
}

// Session backends.
const (
	SessionBackendMongo = "mongo"
	SessionBackendRedis = "redis"
)

// Mail backends.
const (
	MailBackendSMTP     = "smtp"
	MailBackendSendGrid = "sendgrid"
)
