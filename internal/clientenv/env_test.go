package clientenv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFromContext_DefaultsToNull(t *testing.T) {
	env := FromContext(context.Background())
	if env.IsBrowser() {
		t.Error("default environment should not be a browser")
	}
	env.Storage().Set("k", "v")
	if _, ok := env.Storage().Get("k"); ok {
		t.Error("null storage should retain nothing")
	}
}

func TestWithEnvironment_RoundTrip(t *testing.T) {
	snap := &Snapshot{Agent: "UA"}
	ctx := WithEnvironment(context.Background(), snap)
	if got := FromContext(ctx); got != snap {
		t.Errorf("FromContext = %v, want %v", got, snap)
	}
}

func TestSnapshot_LazyStorage(t *testing.T) {
	snap := &Snapshot{}
	snap.Storage().Set("a", "1")
	if v, ok := snap.Storage().Get("a"); !ok || v != "1" {
		t.Errorf("Get = %q, %v; want 1, true", v, ok)
	}
}

func TestParseResolution(t *testing.T) {
	testCases := []struct {
		in   string
		w, h int
	}{
		{"1920x1080", 1920, 1080},
		{" 390 X 844 ", 390, 844},
		{"", 0, 0},
		{"1920", 0, 0},
		{"axb", 0, 0},
		{"-1x5", 0, 0},
	}
	for _, tc := range testCases {
		w, h := ParseResolution(tc.in)
		if w != tc.w || h != tc.h {
			t.Errorf("ParseResolution(%q) = %d, %d; want %d, %d", tc.in, w, h, tc.w, tc.h)
		}
	}
}

func TestPrimaryLanguage(t *testing.T) {
	testCases := map[string]string{
		"ar-EG,ar;q=0.9,en;q=0.8": "ar-EG",
		"en;q=0.5":                "en",
		"":                        "",
	}
	for in, want := range testCases {
		if got := PrimaryLanguage(in); got != want {
			t.Errorf("PrimaryLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromRequest_CapturesSignals(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	r.Header.Set("Accept-Language", "ar-SA,ar;q=0.9")
	r.Header.Set(HeaderScreenResolution, "390x844")
	r.Header.Set(HeaderTimezone, "Asia/Riyadh")
	r.Header.Set(HeaderVisitorID, "visitor-123")
	w := httptest.NewRecorder()

	env := FromRequest(w, r, time.Hour)
	if env.UserAgent() != "Mozilla/5.0 (iPhone)" {
		t.Errorf("UserAgent = %q", env.UserAgent())
	}
	if wd, ht := env.Screen(); wd != 390 || ht != 844 {
		t.Errorf("Screen = %dx%d, want 390x844", wd, ht)
	}
	if env.Language() != "ar-SA" {
		t.Errorf("Language = %q, want ar-SA", env.Language())
	}
	if env.Timezone() != "Asia/Riyadh" {
		t.Errorf("Timezone = %q", env.Timezone())
	}
	if id, err := env.VisitorID(context.Background()); err != nil || id != "visitor-123" {
		t.Errorf("VisitorID = %q, %v", id, err)
	}
}

func TestCookieStorage_SetGetRemove(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionTokenKey, Value: "old"})
	w := httptest.NewRecorder()
	s := NewCookieStorage(w, r, time.Hour)

	if v, ok := s.Get(SessionTokenKey); !ok || v != "old" {
		t.Fatalf("Get = %q, %v; want old, true", v, ok)
	}
	s.Set(SessionTokenKey, "new")
	if v, _ := s.Get(SessionTokenKey); v != "new" {
		t.Errorf("Get after Set = %q, want new", v)
	}
	s.Remove(SessionTokenKey)
	if _, ok := s.Get(SessionTokenKey); ok {
		t.Error("Get after Remove should report missing")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("Set-Cookie count = %d, want 2", len(cookies))
	}
	if !cookies[0].HttpOnly || cookies[0].MaxAge != 3600 {
		t.Errorf("set cookie = %+v, want HttpOnly with MaxAge 3600", cookies[0])
	}
	if cookies[1].MaxAge >= 0 {
		t.Errorf("remove cookie MaxAge = %d, want negative", cookies[1].MaxAge)
	}
}

func TestCookieStorage_HeaderFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderSessionToken, strings.Repeat("t", 64))
	s := NewCookieStorage(httptest.NewRecorder(), r, time.Hour)

	if v, ok := s.Get(SessionTokenKey); !ok || len(v) != 64 {
		t.Errorf("Get = %q, %v; want header token", v, ok)
	}
	if _, ok := s.Get("other"); ok {
		t.Error("header fallback should only apply to the session token key")
	}
}
