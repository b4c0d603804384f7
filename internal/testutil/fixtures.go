package testutil

import (
	"context"
	"testing"

	"github.com/ezhangle/elle/internal/app/store/invitations"
	userstore "github.com/ezhangle/elle/internal/app/store/users"
	"github.com/ezhangle/elle/internal/app/system/passwords"
	"github.com/ezhangle/elle/internal/app/system/tokens"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// FastPasswordParams keeps argon2id cheap in tests.
var FastPasswordParams = passwords.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser registers a user whose stored password is the argon2id hash of
// digest.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, digest string) models.User {
	f.t.Helper()
	return CreateUserIn(ctx, f.t, userstore.New(f.db), fullName, email, digest)
}

// CreateInvitation records a pending invitation and returns it with its
// clear activation code.
func (f *Fixtures) CreateInvitation(ctx context.Context, email string) (*models.Invitation, string) {
	f.t.Helper()

	code, err := tokens.New()
	if err != nil {
		f.t.Fatalf("failed to generate activation code: %v", err)
	}
	inv, err := invitations.New(f.db).Create(ctx, email, code)
	if err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv, code
}

// UserCreator is satisfied by the Mongo user store and MemUsers.
type UserCreator interface {
	Create(ctx context.Context, u models.User) (models.User, error)
}

// CreateUserIn creates a user in any user directory.
func CreateUserIn(ctx context.Context, t *testing.T, users UserCreator, fullName, email, digest string) models.User {
	t.Helper()

	hash, err := passwords.HashWith(digest, FastPasswordParams)
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}
	u, err := users.Create(ctx, models.User{
		Email:     email,
		FullName:  fullName,
		Password:  hash,
		Identity:  "identity-" + email,
		PublicKey: "pk-" + email,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}
