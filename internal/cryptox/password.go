// Package cryptox implements the credential hasher: per-account random salts
// and PBKDF2-HMAC-SHA256 password digests.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"github.com/dmitrijs2005/skillauth/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the salt length in bytes (128 bits).
	SaltSize = 16
	// KeyIterations is the PBKDF2 iteration count.
	KeyIterations = 100_000
	// KeySize is the digest length in bytes (256 bits).
	KeySize = 32
)

// PasswordHasher derives and verifies password digests. Only salt generation
// touches the random source; hashing and verification are pure.
//
// The random source must be safe for concurrent use. crypto/rand.Reader is.
type PasswordHasher struct {
	random io.Reader
}

// NewPasswordHasher returns a hasher drawing salts from random, or from
// crypto/rand when random is nil.
func NewPasswordHasher(random io.Reader) *PasswordHasher {
	if random == nil {
		random = rand.Reader
	}
	return &PasswordHasher{random: random}
}

// GenerateSalt returns SaltSize fresh random bytes.
func (h *PasswordHasher) GenerateSalt() ([]byte, error) {
	return common.ReadRandom(h.random, SaltSize)
}

// HashNew generates a fresh salt and the digest of plaintext under it.
// Every password set or change must go through here so salts are never reused.
func (h *PasswordHasher) HashNew(plaintext string) (salt, digest []byte, err error) {
	salt, err = h.GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	return salt, Hash(salt, plaintext), nil
}

// Hash derives the KeySize-byte digest of plaintext under salt.
// Identical inputs always produce identical output.
func Hash(salt []byte, plaintext string) []byte {
	return deriveKey(salt, plaintext, KeyIterations, KeySize)
}

// Verify reports whether plaintext hashes to digest under salt. The digests are
// compared in constant time.
func Verify(salt, digest []byte, plaintext string) bool {
	if len(salt) == 0 || len(digest) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(Hash(salt, plaintext), digest) == 1
}

func deriveKey(salt []byte, plaintext string, iterations, size int) []byte {
	return pbkdf2.Key([]byte(plaintext), salt, iterations, size, sha256.New)
}
