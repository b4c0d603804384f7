package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ezhangle/elle/internal/app/store/invitations"
	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/auth"
	"github.com/ezhangle/elle/internal/app/system/identity"
	"github.com/ezhangle/elle/internal/app/system/mailer"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Users                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// MemUsers is an in-memory user directory with the same error contract as
// the Mongo store.
type MemUsers struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.User
	Fail  error // returned by every call when set
	Calls int
}

// NewMemUsers returns an empty directory.
func NewMemUsers() *MemUsers {
	return &MemUsers{byID: map[primitive.ObjectID]models.User{}}
}

func (m *MemUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Fail != nil {
		return nil, m.Fail
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return &u, nil
}

func (m *MemUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Fail != nil {
		return nil, m.Fail
	}
	email = normalize.Email(email)
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (m *MemUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, userstore.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (m *MemUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Fail != nil {
		return models.User{}, m.Fail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	if u.Devices == nil {
		u.Devices = []string{}
	}
	if u.Networks == nil {
		u.Networks = []string{}
	}
	if len(u.Accounts) == 0 {
		u.Accounts = []models.Account{{Type: models.AccountTypeEmail, ID: u.Email}}
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return u, nil
}

// Put stores u as is.
func (m *MemUsers) Put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
}

// Len reports how many users are stored.
func (m *MemUsers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// FetchUser implements auth.UserFetcher.
func (m *MemUsers) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return &auth.SessionUser{ID: u.ID.Hex(), Email: u.Email, FullName: u.FullName}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Invitations                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// MemInvitations is an in-memory invitation ledger. Codes are kept in clear
// so tests can redeem them.
type MemInvitations struct {
	mu    sync.Mutex
	items map[string]models.Invitation
	codes map[string]string
	Fail  error
}

// NewMemInvitations returns an empty ledger.
func NewMemInvitations() *MemInvitations {
	return &MemInvitations{items: map[string]models.Invitation{}, codes: map[string]string{}}
}

func (m *MemInvitations) GetByEmail(_ context.Context, email string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	inv, ok := m.items[normalize.Email(email)]
	if !ok {
		return nil, invitations.ErrNotFound
	}
	return &inv, nil
}

func (m *MemInvitations) Create(_ context.Context, email, code string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	email = normalize.Email(email)
	if _, ok := m.items[email]; ok {
		return nil, invitations.ErrAlreadyInvited
	}
	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Status:    models.InvitationPending,
		CodeHash:  "plain:" + code,
		CreatedAt: time.Now().UTC(),
	}
	m.items[email] = inv
	m.codes[email] = code
	return &inv, nil
}

func (m *MemInvitations) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	email = normalize.Email(email)
	delete(m.items, email)
	delete(m.codes, email)
	return nil
}

func (m *MemInvitations) Verify(_ context.Context, email, code string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	email = normalize.Email(email)
	inv, ok := m.items[email]
	if !ok || !inv.IsPending() || m.codes[email] != code {
		return nil, invitations.ErrInvalidCode
	}
	return &inv, nil
}

func (m *MemInvitations) Accept(_ context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for email, inv := range m.items {
		if inv.ID != id {
			continue
		}
		if !inv.IsPending() {
			return invitations.ErrInvalidCode
		}
		now := time.Now().UTC()
		inv.Status = models.InvitationAccepted
		inv.AcceptedAt = &now
		inv.AcceptedBy = &userID
		m.items[email] = inv
		return nil
	}
	return invitations.ErrInvalidCode
}

// Code returns the clear activation code issued for email.
func (m *MemInvitations) Code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[normalize.Email(email)]
}

// Len reports how many invitations are stored.
func (m *MemInvitations) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sessions                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// MemSessions implements auth.Backend in memory.
type MemSessions struct {
	mu sync.Mutex
	m  map[string]sessionstore.Session
}

// NewMemSessions returns an empty session backend.
func NewMemSessions() *MemSessions {
	return &MemSessions{m: map[string]sessionstore.Session{}}
}

func (s *MemSessions) Create(_ context.Context, sess sessionstore.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[sess.Token]; ok {
		return sessionstore.ErrDuplicateToken
	}
	s.m[sess.Token] = sess
	return nil
}

func (s *MemSessions) Get(_ context.Context, token string) (*sessionstore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[token]
	if !ok || sess.Expired(time.Now()) {
		return nil, sessionstore.ErrNotFound
	}
	return &sess, nil
}

func (s *MemSessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[token]; !ok {
		return sessionstore.ErrNotFound
	}
	delete(s.m, token)
	return nil
}

// Len reports how many sessions are live.
func (s *MemSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mail                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Outbox is a mailer.Transport that records messages instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []mailer.Email
	Fail error
}

func (o *Outbox) Deliver(_ context.Context, _ mailer.Sender, msg mailer.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail != nil {
		return o.Fail
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (o *Outbox) Sent() []mailer.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mailer.Email(nil), o.sent...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Identity                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// FakeIssuer returns a fixed identity derived from the request.
type FakeIssuer struct {
	mu       sync.Mutex
	Requests []identity.Request
	Fail     error
}

func (f *FakeIssuer) Generate(_ context.Context, req identity.Request) (identity.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return identity.Result{}, f.Fail
	}
	f.Requests = append(f.Requests, req)
	return identity.Result{
		Identity:  "identity-" + req.UserID,
		PublicKey: "pk-" + req.UserID,
	}, nil
}
