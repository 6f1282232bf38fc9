// Package auth - apitoken.go verifies API tokens against their stored bcrypt
// hashes. The raw token is never stored; a 10-character plaintext prefix narrows
// the candidate set so bcrypt runs only on a handful of rows per request.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// TokenPrefixLength is the number of leading token characters stored in
// plaintext for indexed candidate lookup.
const TokenPrefixLength = 10

// apiTokenPrefix marks helpdesk API tokens so they are recognizable in
// configuration files and secret scanners.
const apiTokenPrefix = "hd_"

// GenerateAPIToken creates a new raw API token and its bcrypt hash. The raw
// token is returned exactly once; only the hash and the lookup prefix are
// persisted.
func GenerateAPIToken() (raw, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw = apiTokenPrefix + hex.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash token: %w", err)
	}
	return raw, string(hashed), nil
}

// TokenPrefix returns the indexed-lookup prefix for a raw token.
func TokenPrefix(token string) string {
	if len(token) > TokenPrefixLength {
		return token[:TokenPrefixLength]
	}
	return token
}

// ValidateAPIToken reports whether the provided raw token matches the stored
// bcrypt hash.
func ValidateAPIToken(providedToken, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedToken)) == nil
}
