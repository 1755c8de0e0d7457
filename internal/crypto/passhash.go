// Package crypto implements token generation and server-side secret hashing.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewOpaqueToken returns a hex-encoded random token of 2n characters.
// Used for bearer tokens, credentials, and save tokens.
func NewOpaqueToken(n int) (string, error) {
	b, err := RandBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSecret returns the Argon2id hash of secret using the provided salt.
func HashSecret(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifySecret verifies secret against expected Argon2id hash and salt.
func VerifySecret(secret, salt, expected []byte) bool {
	got := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// HashCredential encodes secret as hex(salt)$hex(argon2id). The encoding is
// self-contained, so only this string needs to be stored.
func HashCredential(secret string) (string, error) {
	salt, err := RandBytes(16)
	if err != nil {
		return "", err
	}
	h := HashSecret([]byte(secret), salt)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(h), nil
}

// VerifyCredential reports whether secret matches an encoded credential.
func VerifyCredential(encoded, secret string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	return VerifySecret([]byte(secret), salt, expected)
}

// TokensEqual compares two opaque tokens in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
