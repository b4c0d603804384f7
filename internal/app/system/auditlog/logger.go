// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/ezhangle/elle/internal/app/store/audit"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config selects where each category of events goes.
type Config struct {
	Auth  string
	Admin string
}

// Recorder persists events. *audit.Store implements it.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to MongoDB and zap according to Config.
// A nil *Logger is valid and records nothing.
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	}
	if s == "" {
		return All
	}
	return s
}

// Log records event. Client details are taken from ctx when unset.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == Off {
		return
	}

	if event.IP == "" && event.UserAgent == "" {
		c := auth.ClientFrom(ctx)
		event.IP, event.UserAgent = c.IP, c.UserAgent
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// --- Authentication Events ---

func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Email:     email,
		Success:   true,
	})
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		Email:         email,
		FailureReason: "user not found",
	})
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		Email:         email,
		FailureReason: "wrong password",
	})
}

// Logout takes the id as a string because it comes straight from the
// session; an unparsable id is logged without it.
func (l *Logger) Logout(ctx context.Context, userID, email string) {
	ev := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		Email:     email,
		Success:   true,
	}
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		ev.UserID = &oid
	}
	l.Log(ctx, ev)
}

func (l *Logger) UserRegistered(ctx context.Context, userID primitive.ObjectID, email string, invited bool) {
	details := map[string]string{"invited": "false"}
	if invited {
		details["invited"] = "true"
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		Email:     email,
		Success:   true,
		Details:   details,
	})
}

func (l *Logger) InvitationAccepted(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventInvitationAccepted,
		UserID:    &userID,
		Email:     email,
		Success:   true,
	})
}

// --- Admin Events ---

// InvitationSent records a new invitation; reissued marks a forced resend.
func (l *Logger) InvitationSent(ctx context.Context, email string, reissued bool) {
	t := audit.EventInvitationSent
	if reissued {
		t = audit.EventInvitationReissued
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: t,
		Email:     email,
		Success:   true,
	})
}

func (l *Logger) InvitationDenied(ctx context.Context, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventInvitationDenied,
		Email:         email,
		FailureReason: reason,
	})
}
