package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer name stamped into every identity.
const issuerName = "meta"

var ErrInvalidIdentity = errors.New("identity: invalid identity")

// Request carries everything needed to mint one identity.
type Request struct {
	UserID            string
	Email             string
	PasswordDigest    string
	AuthorityPath     string
	AuthorityPassword string
}

// Result is what gets stored on the user record.
type Result struct {
	Identity  string
	PublicKey string // base64 ed25519 public key
}

// Claims is the payload of an identity token.
type Claims struct {
	Email     string `json:"email"`
	PublicKey string `json:"public_key"`
	SealedKey string `json:"sealed_key"` // age ciphertext of the user private key, base64
	jwt.RegisteredClaims
}

// Issuer mints identities. Authorities are loaded from disk on first use
// and cached per path and password.
type Issuer struct {
	// WorkFactor is the scrypt log2(N) for sealing user keys; zero keeps
	// the age default.
	WorkFactor int

	mu          sync.Mutex
	authorities map[authorityKey]*Authority
	now         func() time.Time
}

type authorityKey struct {
	path     string
	password [sha256.Size]byte
}

func keyFor(path, password string) authorityKey {
	return authorityKey{path: path, password: sha256.Sum256([]byte(password))}
}

// NewIssuer returns an issuer with an empty authority cache.
func NewIssuer(workFactor int) *Issuer {
	return &Issuer{
		WorkFactor:  workFactor,
		authorities: make(map[authorityKey]*Authority),
		now:         time.Now,
	}
}

// Preload registers an authority already unsealed from path with password.
func (i *Issuer) Preload(path, password string, a *Authority) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.authorities[keyFor(path, password)] = a
}

// authority returns the cached authority or unseals it. The unseal runs
// outside the lock; concurrent cold loads may each unseal, first store wins.
func (i *Issuer) authority(path, password string) (*Authority, error) {
	key := keyFor(path, password)

	i.mu.Lock()
	a, ok := i.authorities[key]
	i.mu.Unlock()
	if ok {
		return a, nil
	}

	loaded, err := LoadAuthority(path, password)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if a, ok := i.authorities[key]; ok {
		return a, nil
	}
	i.authorities[key] = loaded
	return loaded, nil
}

// Generate mints an identity for one user.
func (i *Issuer) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.UserID == "" || req.Email == "" || req.PasswordDigest == "" {
		return Result{}, errors.New("identity: user id, email and password digest are required")
	}

	auth, err := i.authority(req.AuthorityPath, req.AuthorityPassword)
	if err != nil {
		return Result{}, err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Result{}, fmt.Errorf("generate user key: %w", err)
	}
	sealed, err := seal(priv.Seed(), req.PasswordDigest, i.WorkFactor)
	if err != nil {
		return Result{}, err
	}

	pubB64 := base64.StdEncoding.EncodeToString(pub)
	now := i.now()
	claims := Claims{
		Email:     req.Email,
		PublicKey: pubB64,
		SealedKey: base64.StdEncoding.EncodeToString(sealed),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuerName,
			Subject:  req.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(auth.key)
	if err != nil {
		return Result{}, fmt.Errorf("sign identity: %w", err)
	}
	return Result{Identity: signed, PublicKey: pubB64}, nil
}

// Verify checks an identity against the authority's public key.
func Verify(identity string, authorityKey ed25519.PublicKey) (*Claims, error) {
	token, err := jwt.ParseWithClaims(identity, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return authorityKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithIssuer(issuerName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidIdentity
	}
	return claims, nil
}

// OpenPrivateKey recovers the user's private key from verified claims.
func OpenPrivateKey(c *Claims, passwordDigest string) (ed25519.PrivateKey, error) {
	sealed, err := base64.StdEncoding.DecodeString(c.SealedKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealed key: %w", err)
	}
	seed, err := unseal(sealed, passwordDigest)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidIdentity
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
