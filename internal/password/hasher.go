// Package password provides one-way password hashing and the registration
// strength policy.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	algTag = "pbkdf2_sha256"

	// Work factor sized to make offline brute force impractical.
	iterations = 260_000

	saltLen = 16
	keyLen  = 32
)

// Hash derives a salted PBKDF2-SHA256 record for the given plaintext. The
// salt is random per call, so hashing the same plaintext twice yields two
// different records. The record is self-describing
// (algorithm$iterations$salt$digest) so the work factor can change without
// invalidating stored records.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password cannot be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(plaintext), salt, iterations, keyLen, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		algTag,
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify reports whether plaintext matches the stored record. Iterations
// are read back from the record itself, so records written under an older
// work factor keep verifying. A malformed or unknown record verifies false
// rather than erroring; callers never learn which part mismatched. The
// digest comparison is constant time.
func Verify(plaintext, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != algTag {
		return false
	}

	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false
	}

	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plaintext), salt, iter, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
