package validators_test

import (
	"testing"
	"time"

	"github.com/ezhangle/elle/internal/app/system/validators"
	"github.com/ezhangle/elle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	got := make(map[string]bool)
	for _, n := range names {
		got[n] = true
	}
	for _, want := range []string{"users", "invitations", "sessions", "audit_events"} {
		if !got[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	now := time.Now()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"user missing fields", "users", bson.M{"email": "a@b"}, true},
		{"user valid", "users", bson.M{
			"email": "a@b", "fullname": "Abc", "password": "h", "identity": "i", "public_key": "k",
			"devices": bson.A{}, "networks": bson.A{}, "accounts": bson.A{bson.M{"type": "email", "id": "a@b"}},
		}, false},
		{"user bad email", "users", bson.M{
			"email": "nope", "fullname": "Abc", "password": "h", "identity": "i", "public_key": "k",
			"devices": bson.A{}, "networks": bson.A{}, "accounts": bson.A{},
		}, true},
		{"invitation valid", "invitations", bson.M{"email": "a@b", "status": "pending", "code_hash": "x", "created_at": now}, false},
		{"invitation bad status", "invitations", bson.M{"email": "a@b", "status": "lost", "code_hash": "x", "created_at": now}, true},
		{"session valid", "sessions", bson.M{"token": "t", "user_id": primitive.NewObjectID(), "created_at": now, "expires_at": now}, false},
		{"session string user", "sessions", bson.M{"token": "t", "user_id": "abc", "created_at": now, "expires_at": now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("insert error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
