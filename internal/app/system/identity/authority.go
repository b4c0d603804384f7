// Package identity issues the signed identity every user receives at
// registration.
//
// An authority holds an Ed25519 signing key, stored on disk as a PKCS#8 PEM
// block sealed with age (scrypt passphrase). For each user the issuer
// generates a fresh Ed25519 key pair, seals the private half with age under
// the user's password digest, and signs a JWT binding the user id, email and
// public key. The token is the identity; the base64 public key is stored
// alongside it.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

const pemType = "PRIVATE KEY"

// ErrNotEd25519 is returned when an authority file holds another key type.
var ErrNotEd25519 = errors.New("identity: authority key is not ed25519")

// Authority signs identities.
type Authority struct {
	key ed25519.PrivateKey
}

// PublicKey returns the key identities are verified against.
func (a *Authority) PublicKey() ed25519.PublicKey {
	return a.key.Public().(ed25519.PublicKey)
}

// GenerateAuthority creates a new authority and returns it together with
// its sealed file contents. workFactor is the scrypt log2(N); zero keeps the
// age default.
func GenerateAuthority(password string, workFactor int) (*Authority, []byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate authority key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal authority key: %w", err)
	}
	sealed, err := seal(pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: der}), password, workFactor)
	if err != nil {
		return nil, nil, err
	}
	return &Authority{key: priv}, sealed, nil
}

// LoadAuthority reads and unseals the authority file at path.
func LoadAuthority(path, password string) (*Authority, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authority: %w", err)
	}
	return ParseAuthority(sealed, password)
}

// ParseAuthority unseals authority file contents.
func ParseAuthority(sealed []byte, password string) (*Authority, error) {
	raw, err := unseal(sealed, password)
	if err != nil {
		return nil, fmt.Errorf("unseal authority: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemType {
		return nil, errors.New("identity: authority file has no private key block")
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse authority key: %w", err)
	}
	priv, ok := k.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	return &Authority{key: priv}, nil
}

func seal(plaintext []byte, passphrase string, workFactor int) ([]byte, error) {
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt recipient: %w", err)
	}
	if workFactor > 0 {
		r.SetWorkFactor(workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing encryptor: %w", err)
	}
	return buf.Bytes(), nil
}

func unseal(ciphertext []byte, passphrase string) ([]byte, error) {
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return out, nil
}
