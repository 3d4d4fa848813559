// Package security provides credential handling, input validation, rate
// limiting, and structured security logging for the Travel Together application.
// This file implements salt generation, password hashing, and opaque identifier
// minting.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// saltAlphabet is the character set salts are drawn from.
// Stored user rows depend on this alphabet; do not change it.
const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SaltLength is the length of every generated salt in characters.
const SaltLength = 64

// GenerateSalt produces a 64-character random string over [A-Za-z0-9] using
// a cryptographically secure source.
//
// Returns:
//   - string: The generated salt
//   - error: Randomness source failure (should never happen in practice)
//
// Uniformity: bytes >= 248 are rejected before the modulo so every alphabet
// character is equally likely (248 = 4 * 62).
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltLength)
	buf := make([]byte, SaltLength)

	filled := 0
	for filled < SaltLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 248 {
				continue // rejection sampling keeps the distribution uniform
			}
			salt[filled] = saltAlphabet[int(b)%len(saltAlphabet)]
			filled++
			if filled == SaltLength {
				break
			}
		}
	}

	return string(salt), nil
}

// HashPassword computes the stored password digest: hex(SHA-256(salt ‖ password)).
//
// SECURITY NOTE: this is a single unstretched SHA-256, not a memory-hard KDF.
// The format is load-bearing: every existing user row stores digests in this
// exact shape, so it must not be swapped silently. A migration to a modern KDF
// needs a rehash-on-login strategy owned by whoever runs that migration.
func HashPassword(salt, password string) string {
	digest := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(digest[:])
}

// VerifyPassword recomputes the digest for a candidate password and compares
// it against the stored digest in constant time.
//
// Parameters:
//   - salt: The salt stored with the user row
//   - storedDigest: The hex digest stored with the user row
//   - candidate: The plaintext password being checked
//
// Returns:
//   - bool: true when the candidate matches
func VerifyPassword(salt, storedDigest, candidate string) bool {
	computed := HashPassword(salt, candidate)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}

// NewGUID mints a 32-character lowercase hex identifier for external exposure.
// Entities are addressed by these opaque GUIDs everywhere outside the database;
// the serial primary keys never leave the SQL layer.
func NewGUID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NewToken mints an opaque single-use verification token.
// Same shape as a GUID; kept as a separate function so call sites read clearly.
func NewToken() string {
	return NewGUID()
}
