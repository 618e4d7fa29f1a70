package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"course-guard/internal/identity/domain"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestIdentityVerifier_HS256(t *testing.T) {
	v, err := NewIdentityVerifier(testSecret, "", "https://auth.example", "authenticated")
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}
	want := domain.Identity{AccountID: "acc-123456789", Email: "student@example.com", DisplayName: "سارة"}
	tok, err := IssueHS256(testSecret, want, "https://auth.example", "authenticated", time.Minute)
	if err != nil {
		t.Fatalf("IssueHS256: %v", err)
	}
	got, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if *got != want {
		t.Errorf("Verify = %+v, want %+v", *got, want)
	}
}

func TestIdentityVerifier_Rejects(t *testing.T) {
	v, err := NewIdentityVerifier(testSecret, "", "https://auth.example", "authenticated")
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}
	id := domain.Identity{AccountID: "acc-1"}
	mustIssue := func(secret, iss, aud string, ttl time.Duration) string {
		tok, err := IssueHS256(secret, id, iss, aud, ttl)
		if err != nil {
			t.Fatalf("IssueHS256: %v", err)
		}
		return tok
	}
	testCases := []struct {
		name  string
		token string
	}{
		{"wrong secret", mustIssue("another-secret-another-secret!!!", "https://auth.example", "authenticated", time.Minute)},
		{"wrong issuer", mustIssue(testSecret, "https://evil.example", "authenticated", time.Minute)},
		{"wrong audience", mustIssue(testSecret, "https://auth.example", "anon", time.Minute)},
		{"expired", mustIssue(testSecret, "https://auth.example", "authenticated", -time.Minute)},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIdentityVerifier_MissingSubject(t *testing.T) {
	v, err := NewIdentityVerifier(testSecret, "", "", "")
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}
	tok, err := IssueHS256(testSecret, domain.Identity{}, "", "", time.Minute)
	if err != nil {
		t.Fatalf("IssueHS256: %v", err)
	}
	if _, err := v.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify without sub = %v, want ErrInvalidToken", err)
	}
}

func TestIdentityVerifier_RS256WithUserMetadata(t *testing.T) {
	v, err := NewIdentityVerifier("", testPublicKeyPEM, "", "")
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}
	key, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	claims := jwt.MapClaims{
		"sub":           "acc-rs",
		"email":         "rs@example.com",
		"exp":           time.Now().Add(time.Minute).Unix(),
		"user_metadata": map[string]any{"full_name": "  Omar Ali "},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	got, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.AccountID != "acc-rs" || got.DisplayName != "Omar Ali" {
		t.Errorf("Verify = %+v", got)
	}

	// HS256 tokens must not pass an RS256 verifier.
	hs, _ := IssueHS256(testSecret, domain.Identity{AccountID: "acc-rs"}, "", "", time.Minute)
	if _, err := v.Verify(hs); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(HS256) = %v, want ErrInvalidToken", err)
	}
}

func TestNewIdentityVerifier_RequiresKey(t *testing.T) {
	if _, err := NewIdentityVerifier("", "", "", ""); err == nil {
		t.Error("NewIdentityVerifier without secret or key: want error")
	}
	if _, err := NewIdentityVerifier("", "-----BEGIN PUBLIC KEY-----\nbad\n-----END PUBLIC KEY-----", "", ""); err == nil {
		t.Error("NewIdentityVerifier with bad key: want error")
	}
}
