package invite_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	apierrors "github.com/ezhangle/elle/internal/app/features/errors"
	"github.com/ezhangle/elle/internal/app/features/invite"
	"github.com/ezhangle/elle/internal/app/system/mailer"
	"github.com/ezhangle/elle/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const adminToken = "s3cret-admin-token"

type env struct {
	ledger *testutil.MemInvitations
	outbox *testutil.Outbox
	h      *invite.Handler
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ledger := testutil.NewMemInvitations()
	outbox := &testutil.Outbox{}
	m := mailer.New(outbox, mailer.Sender{Name: "Infinit.io", Address: "no-reply@infinit.io"}, zap.NewNop())
	h := invite.NewHandler(ledger, m, nil, adminToken, "http://download.infinit.io/", zap.NewNop())

	r := chi.NewRouter()
	invite.MountRoutes(r, h)
	return &env{ledger: ledger, outbox: outbox, h: h, router: r}
}

func (e *env) post(fields map[string]any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodPost, "/invite", fields))
	return rec
}

func TestInvite_Success(t *testing.T) {
	e := newEnv(t)

	rec := e.post(map[string]any{"email": "Tester@Example.com ", "admin_token": adminToken})

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertEnvelope(t, true, "")

	sent := e.outbox.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if sent[0].To != "tester@example.com" {
		t.Errorf("To = %q", sent[0].To)
	}
	if sent[0].Subject != mailer.InvitationSubject {
		t.Errorf("Subject = %q", sent[0].Subject)
	}
	code := e.ledger.Code("tester@example.com")
	if code == "" {
		t.Fatal("no invitation recorded")
	}
	if !strings.Contains(sent[0].TextBody, "Activation code: "+code) {
		t.Errorf("email body does not carry the recorded code:\n%s", sent[0].TextBody)
	}
}

func TestInvite_NotAdmin(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"wrong token", map[string]any{"email": "a@b.io", "admin_token": "nope"}},
		{"missing token", map[string]any{"email": "a@b.io"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			rec := e.post(tt.fields)
			rec.AssertStatus(t, http.StatusOK)
			rec.AssertEnvelope(t, false, "You're not admin")
			if len(e.outbox.Sent()) != 0 || e.ledger.Len() != 0 {
				t.Error("nothing should be sent or stored")
			}
		})
	}
}

func TestInvite_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	e := newEnv(t)
	e.h.AdminToken = ""

	rec := e.post(map[string]any{"email": "a@b.io", "admin_token": ""})
	rec.AssertEnvelope(t, false, "You're not admin")
}

func TestInvite_AlreadyInvited(t *testing.T) {
	e := newEnv(t)
	e.post(map[string]any{"email": "a@b.io", "admin_token": adminToken})

	rec := e.post(map[string]any{"email": "a@b.io", "admin_token": adminToken})

	rec.AssertEnvelope(t, false, "Already invited!")
	if n := len(e.outbox.Sent()); n != 1 {
		t.Errorf("expected 1 email total, got %d", n)
	}
}

func TestInvite_ForceReissues(t *testing.T) {
	tests := []struct {
		name  string
		force any
		ok    bool
	}{
		{"true", true, true},
		{"empty string", "", true},
		{"one", "1", true},
		{"false", false, false},
		{"off", "off", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.post(map[string]any{"email": "a@b.io", "admin_token": adminToken})
			first := e.ledger.Code("a@b.io")

			rec := e.post(map[string]any{"email": "a@b.io", "admin_token": adminToken, "force": tt.force})

			if !tt.ok {
				rec.AssertEnvelope(t, false, "Already invited!")
				return
			}
			rec.AssertEnvelope(t, true, "")
			second := e.ledger.Code("a@b.io")
			if second == "" || second == first {
				t.Errorf("expected a new code, got %q (old %q)", second, first)
			}
			if e.ledger.Len() != 1 {
				t.Errorf("expected a single ledger entry, got %d", e.ledger.Len())
			}
		})
	}
}

func TestInvite_FormEncoded(t *testing.T) {
	e := newEnv(t)
	rec := testutil.NewRecorder()
	req := testutil.NewFormRequest(http.MethodPost, "/invite", url.Values{
		"email":       {"form@b.io"},
		"admin_token": {adminToken},
	})
	e.router.ServeHTTP(rec, req)

	rec.AssertEnvelope(t, true, "")
	if e.ledger.Code("form@b.io") == "" {
		t.Error("invitation not recorded")
	}
}

func TestInvite_MailFailurePersistsNothing(t *testing.T) {
	e := newEnv(t)
	e.outbox.Fail = errors.New("smtp down")

	rec := e.post(map[string]any{"email": "a@b.io", "admin_token": adminToken})

	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertEnvelope(t, false, apierrors.ServerErrorMessage)
	if e.ledger.Len() != 0 {
		t.Error("invitation must not be stored when the mail fails")
	}
}

func TestInvite_InvalidEmail(t *testing.T) {
	e := newEnv(t)
	err := e.h.Invite(context.Background(), invite.Input{Email: "nobody", AdminToken: adminToken})
	if apierrors.KindOf(err) != apierrors.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}
