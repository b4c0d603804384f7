// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountTypeEmail is the account type seeded on every new user.
const AccountTypeEmail = "email"

// Account links a user to an external identifier (an email address today).
type Account struct {
	Type string `bson:"type" json:"type"`
	ID   string `bson:"id" json:"id"`
}

// User is a registered account.
//
// NOTE:
//   - Password holds an argon2id hash of the client-side digest, never the digest itself.
//   - Devices and Networks are linked later by other services; they start empty.
type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Email     string             `bson:"email" json:"email"`
	FullName  string             `bson:"fullname" json:"fullname"`
	Password  string             `bson:"password" json:"-"`
	Identity  string             `bson:"identity" json:"identity"`
	PublicKey string             `bson:"public_key" json:"public_key"`
	Devices   []string           `bson:"devices" json:"devices"`
	Networks  []string           `bson:"networks" json:"networks"`
	Accounts  []Account          `bson:"accounts" json:"accounts"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// Profile is the caller's own view of their account.
type Profile struct {
	ID        string    `json:"_id"`
	FullName  string    `json:"fullname"`
	Email     string    `json:"email"`
	Devices   []string  `json:"devices"`
	Networks  []string  `json:"networks"`
	Identity  string    `json:"identity"`
	PublicKey string    `json:"public_key"`
	Accounts  []Account `json:"accounts"`
}

// PublicProfile is the subset of a user that any caller may see.
type PublicProfile struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	PublicKey string `json:"public_key"`
}

// Profile returns the owner's view of u. Nil slices are reported as empty lists.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID.Hex(),
		FullName:  u.FullName,
		Email:     u.Email,
		Devices:   nonNil(u.Devices),
		Networks:  nonNil(u.Networks),
		Identity:  u.Identity,
		PublicKey: u.PublicKey,
		Accounts:  nonNilAccounts(u.Accounts),
	}
}

// Public returns the publicly visible part of u.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		PublicKey: u.PublicKey,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAccounts(a []Account) []Account {
	if a == nil {
		return []Account{}
	}
	return a
}
