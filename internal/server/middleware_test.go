package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"course-guard/internal/clientenv"
	"course-guard/internal/identity"
	"course-guard/internal/identity/domain"
)

type stubVerifier struct {
	valid map[string]*domain.Identity
}

func (v stubVerifier) Verify(token string) (*domain.Identity, error) {
	if id, ok := v.valid[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer", ""},
		{"Basic abc", ""},
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"BEARER abc", "abc"},
	}
	for _, tc := range testCases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		require.Equal(t, tc.want, extractBearer(r), tc.header)
	}
}

func TestAuthenticate(t *testing.T) {
	verifier := stubVerifier{valid: map[string]*domain.Identity{"good": {AccountID: "acc-1", Email: "a@x.io"}}}
	var seen *domain.Identity
	var called bool
	h := Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = identity.FromContext(r.Context())
	}))

	serve := func(header string) int {
		called, seen = false, nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, serve(""))
	require.True(t, called, "anonymous requests continue")
	require.Nil(t, seen)

	require.Equal(t, http.StatusOK, serve("Bearer good"))
	require.NotNil(t, seen)
	require.Equal(t, "acc-1", seen.AccountID)

	require.Equal(t, http.StatusUnauthorized, serve("Bearer forged"))
	require.False(t, called)
}

func TestAuthenticate_NilVerifier(t *testing.T) {
	var called bool
	h := Authenticate(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer anything")
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.True(t, called)
}

func TestDeviceEnv(t *testing.T) {
	var env clientenv.Environment
	h := DeviceEnv(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env = clientenv.FromContext(r.Context())
		env.Storage().Set(clientenv.SessionTokenKey, "tok")
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	r.Header.Set(clientenv.HeaderScreenResolution, "1920x1080")
	r.Header.Set("Accept-Language", "ar-EG,ar;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.True(t, env.IsBrowser())
	require.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", env.UserAgent())
	w, hgt := env.Screen()
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, hgt)
	require.Equal(t, "ar-EG", env.Language())

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == clientenv.SessionTokenKey && c.Value == "tok" {
			found = true
		}
	}
	require.True(t, found, "token cached as cookie")
}
