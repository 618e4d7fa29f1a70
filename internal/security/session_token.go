package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/jaevor/go-nanoid"
)

// SessionTokenLength is the length of a session token.
const SessionTokenLength = 64

const sessionTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	tokenGenOnce sync.Once
	tokenGen     func() string
	tokenGenErr  error
)

// NewSessionToken returns a random alphanumeric token of SessionTokenLength characters.
func NewSessionToken() (string, error) {
	tokenGenOnce.Do(func() {
		tokenGen, tokenGenErr = nanoid.CustomASCII(sessionTokenAlphabet, SessionTokenLength)
	})
	if tokenGenErr != nil {
		return "", fmt.Errorf("session token generator: %w", tokenGenErr)
	}
	return tokenGen(), nil
}

// HashSessionToken returns the hex SHA-256 of token. Only the hash is persisted.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
