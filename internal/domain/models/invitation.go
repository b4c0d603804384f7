// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. The transition is one way: pending → accepted.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

// Invitation is a beta-tester invitation sent to an email address.
// The activation code itself is only ever sent by email; the ledger keeps a bcrypt hash.
type Invitation struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	Email      string              `bson:"email"`
	Status     string              `bson:"status"`
	CodeHash   string              `bson:"code_hash"`
	CreatedAt  time.Time           `bson:"created_at"`
	AcceptedAt *time.Time          `bson:"accepted_at,omitempty"`
	AcceptedBy *primitive.ObjectID `bson:"accepted_by,omitempty"`
}

// IsPending reports whether the invitation can still be redeemed.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}
