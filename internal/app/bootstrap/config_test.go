package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/ezhangle/elle/internal/app/system/mailer"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "meta_test",
		SessionKey:     strings.Repeat("k", 32),
		SessionName:    "meta-session",
		SessionTTL:     720 * time.Hour,
		SessionBackend: SessionBackendMongo,
		AdminToken:     "admin",
		AuthorityPath:  "/etc/meta/authority.age",
		MailBackend:    MailBackendSMTP,
		MailSMTPHost:   "localhost",
		MailSMTPPort:   1025,
		AuditLogAuth:   "all",
		AuditLogAdmin:  "off",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "postgres://x" }, "invalid MongoDB URI"},
		{"missing admin token", func(c *AppConfig) { c.AdminToken = " " }, "admin_token must be set"},
		{"short session key", func(c *AppConfig) { c.SessionKey = "short" }, "session_key"},
		{"missing authority", func(c *AppConfig) { c.AuthorityPath = "" }, "authority_path"},
		{"unknown session backend", func(c *AppConfig) { c.SessionBackend = "memcache" }, "unknown session_backend"},
		{"redis without url", func(c *AppConfig) { c.SessionBackend = SessionBackendRedis; c.RedisURL = "" }, "requires redis_url"},
		{"redis with url", func(c *AppConfig) { c.SessionBackend = SessionBackendRedis; c.RedisURL = "redis://localhost:6379/0" }, ""},
		{"unknown mail backend", func(c *AppConfig) { c.MailBackend = "pigeon" }, "unknown mail_backend"},
		{"sendgrid without key", func(c *AppConfig) { c.MailBackend = MailBackendSendGrid }, "sendgrid_api_key"},
		{"bad audit setting", func(c *AppConfig) { c.AuditLogAuth = "sometimes" }, "audit_log_auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(nil, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.AdminToken = ""
	cfg.AuthorityPath = ""

	err := ValidateConfig(nil, cfg, testLogger())
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"admin_token", "authority_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestNewMailTransport(t *testing.T) {
	cfg := validConfig()

	tr, err := newMailTransport(cfg)
	if err != nil {
		t.Fatalf("smtp: %v", err)
	}
	if _, ok := tr.(*mailer.SMTP); !ok {
		t.Errorf("smtp backend built %T", tr)
	}

	cfg.MailBackend = MailBackendSendGrid
	cfg.SendGridAPIKey = "SG.test"
	tr, err = newMailTransport(cfg)
	if err != nil {
		t.Fatalf("sendgrid: %v", err)
	}
	if _, ok := tr.(*mailer.SendGrid); !ok {
		t.Errorf("sendgrid backend built %T", tr)
	}

	cfg.MailBackend = "pigeon"
	if _, err := newMailTransport(cfg); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
