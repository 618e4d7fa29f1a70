package security

import (
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"course-guard/internal/identity/domain"
)

// ErrInvalidToken is returned when an identity token fails signature or claim checks.
var ErrInvalidToken = errors.New("invalid identity token")

// identityClaims mirrors the access token issued by the hosted auth service.
type identityClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Name         string         `json:"name,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// IdentityVerifier validates bearer tokens from the auth collaborator and turns them into an Identity.
// It accepts HS256 with a shared secret, or RS256/ES256 with a public key.
type IdentityVerifier struct {
	secret    []byte
	publicKey crypto.PublicKey
	alg       string
	issuer    string
	audience  string
}

// NewIdentityVerifier builds a verifier. publicKeyPEM (inline or path) wins over secret when both are set.
// Returns an error when neither is configured or the key cannot be parsed.
func NewIdentityVerifier(secret, publicKeyPEM, issuer, audience string) (*IdentityVerifier, error) {
	v := &IdentityVerifier{issuer: issuer, audience: audience}
	if strings.TrimSpace(publicKeyPEM) != "" {
		pub, err := ParsePublicKey(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("identity public key: %w", err)
		}
		v.publicKey = pub
		v.alg = KeyAlg(pub)
		return v, nil
	}
	if secret == "" {
		return nil, errors.New("identity verifier: secret or public key required")
	}
	v.secret = []byte(secret)
	v.alg = jwt.SigningMethodHS256.Alg()
	return v, nil
}

// Verify parses and validates tokenString. The subject becomes the account id.
func (v *IdentityVerifier) Verify(tokenString string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.alg}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := &identityClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{
		AccountID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.displayName(),
	}, nil
}

func (v *IdentityVerifier) keyFunc(*jwt.Token) (any, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.secret, nil
}

func (c *identityClaims) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	for _, key := range []string{"full_name", "name"} {
		if s, ok := c.UserMetadata[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// IssueHS256 signs a short-lived identity token with secret. Used by cmd/seed and tests;
// production tokens come from the auth service.
func IssueHS256(secret string, id domain.Identity, issuer, audience string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("issue token: secret required")
	}
	now := time.Now().UTC()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Name:  id.DisplayName,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
