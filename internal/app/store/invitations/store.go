// internal/app/store/invitations/store.go
package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/ezhangle/elle/internal/app/system/normalize"
	"github.com/ezhangle/elle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("invitation not found")
	ErrAlreadyInvited = errors.New("email already invited")
	// ErrInvalidCode covers a wrong code and an invitation that was already used.
	ErrInvalidCode = errors.New("invalid activation code")
)

// Store is the invitation ledger.
type Store struct {
	c *mongo.Collection
}

// New creates a new invitations Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// GetByEmail returns the invitation for email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create records a pending invitation. Only a bcrypt hash of code is stored.
func (s *Store) Create(ctx context.Context, email, code string) (*models.Invitation, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash activation code: %w", err)
	}
	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		Status:    models.InvitationPending,
		CodeHash:  string(hash),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrAlreadyInvited
		}
		return nil, err
	}
	return &inv, nil
}

// DeleteByEmail removes any invitation for email. Missing is not an error.
func (s *Store) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"email": normalize.Email(email)})
	return err
}

// Verify checks code against the pending invitation for email and returns it.
func (s *Store) Verify(ctx context.Context, email, code string) (*models.Invitation, error) {
	inv, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if !inv.IsPending() {
		return nil, ErrInvalidCode
	}
	if bcrypt.CompareHashAndPassword([]byte(inv.CodeHash), []byte(code)) != nil {
		return nil, ErrInvalidCode
	}
	return inv, nil
}

// Accept moves a pending invitation to accepted. It only succeeds once.
func (s *Store) Accept(ctx context.Context, id, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitationPending},
		bson.M{"$set": bson.M{
			"status":      models.InvitationAccepted,
			"accepted_at": now,
			"accepted_by": userID,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInvalidCode
	}
	return nil
}
