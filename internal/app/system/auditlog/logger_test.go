package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ezhangle/elle/internal/app/store/audit"
	"github.com/ezhangle/elle/internal/app/system/auditlog"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memRecorder struct {
	events []audit.Event
	err    error
}

func (m *memRecorder) Log(_ context.Context, e audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx := context.Background()

	// must not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, primitive.NewObjectID(), "a@b")
	logger.Logout(ctx, primitive.NewObjectID().Hex(), "a@b")
	logger.InvitationSent(ctx, "a@b", false)
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
		wantZap int
	}{
		{auditlog.All, 1, 1},
		{auditlog.DB, 1, 0},
		{auditlog.Log, 0, 1},
		{auditlog.Off, 0, 0},
		{"", 1, 1}, // unset means all
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			rec := &memRecorder{}
			core, logs := observer.New(zap.InfoLevel)
			logger := auditlog.New(rec, zap.New(core), auditlog.Config{Auth: tt.setting, Admin: auditlog.Off})

			logger.LoginSuccess(context.Background(), primitive.NewObjectID(), "a@b")
			logger.InvitationSent(context.Background(), "x@y", false) // admin is off

			if len(rec.events) != tt.wantDB {
				t.Errorf("db events = %d, want %d", len(rec.events), tt.wantDB)
			}
			if logs.Len() != tt.wantZap {
				t.Errorf("zap entries = %d, want %d", logs.Len(), tt.wantZap)
			}
		})
	}
}

func TestLogger_ClientFromContext(t *testing.T) {
	rec := &memRecorder{}
	logger := auditlog.New(rec, zap.NewNop(), auditlog.Config{})

	ctx := auth.WithClient(context.Background(), auth.Client{IP: "198.51.100.7", UserAgent: "curl"})
	logger.LoginFailedUserNotFound(ctx, "ghost@example.com")

	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	e := rec.events[0]
	if e.IP != "198.51.100.7" || e.UserAgent != "curl" {
		t.Errorf("client not captured: %+v", e)
	}
	if e.Success || e.FailureReason != "user not found" || e.Email != "ghost@example.com" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestLogger_EventShapes(t *testing.T) {
	rec := &memRecorder{}
	logger := auditlog.New(rec, zap.NewNop(), auditlog.Config{})
	ctx := context.Background()
	uid := primitive.NewObjectID()

	logger.LoginFailedWrongPassword(ctx, uid, "a@b")
	logger.Logout(ctx, "not-hex", "a@b")
	logger.UserRegistered(ctx, uid, "a@b", true)
	logger.InvitationAccepted(ctx, uid, "a@b")
	logger.InvitationSent(ctx, "a@b", true)
	logger.InvitationDenied(ctx, "a@b", "not admin")

	want := []struct {
		typ      string
		category string
		success  bool
	}{
		{audit.EventLoginFailedWrongPassword, audit.CategoryAuth, false},
		{audit.EventLogout, audit.CategoryAuth, true},
		{audit.EventUserRegistered, audit.CategoryAuth, true},
		{audit.EventInvitationAccepted, audit.CategoryAuth, true},
		{audit.EventInvitationReissued, audit.CategoryAdmin, true},
		{audit.EventInvitationDenied, audit.CategoryAdmin, false},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(rec.events), len(want))
	}
	for i, w := range want {
		e := rec.events[i]
		if e.EventType != w.typ || e.Category != w.category || e.Success != w.success {
			t.Errorf("event %d = %+v, want %+v", i, e, w)
		}
	}
	if rec.events[1].UserID != nil {
		t.Error("logout with bad id should omit UserID")
	}
	if rec.events[2].Details["invited"] != "true" {
		t.Errorf("Details = %v", rec.events[2].Details)
	}
}

func TestLogger_StoreErrorIsLogged(t *testing.T) {
	rec := &memRecorder{err: errors.New("insert failed")}
	core, logs := observer.New(zap.ErrorLevel)
	logger := auditlog.New(rec, zap.New(core), auditlog.Config{Auth: auditlog.DB})

	logger.LoginSuccess(context.Background(), primitive.NewObjectID(), "a@b")
	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}

func TestLogger_WithMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uid := primitive.NewObjectID()
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DB})
	logger.LoginSuccess(ctx, uid, "m@example.com")

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &uid})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("events = %+v", events)
	}
}
