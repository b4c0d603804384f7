// Package tokens generates the random secrets handed out to clients:
// session tokens and invitation activation codes.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Size is the number of random bytes behind every token (256 bits).
const Size = 32

// New returns a hex-encoded token of Size random bytes.
func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Valid reports whether s has the shape of a token produced by New.
func Valid(s string) bool {
	if len(s) != Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
