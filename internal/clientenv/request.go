package clientenv

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Request headers carrying device signals the browser cannot send implicitly.
const (
	HeaderScreenResolution = "X-Screen-Resolution"
	HeaderTimezone         = "X-Timezone"
	HeaderVisitorID        = "X-Visitor-Id"
	HeaderSessionToken     = "X-Session-Token"
)

// FromRequest captures the device signals of r. The returned environment's storage is backed by cookies
// written to w, each living for maxAge.
func FromRequest(w http.ResponseWriter, r *http.Request, maxAge time.Duration) *Snapshot {
	width, height := ParseResolution(r.Header.Get(HeaderScreenResolution))
	return &Snapshot{
		Agent:   r.UserAgent(),
		Width:   width,
		Height:  height,
		TZ:      strings.TrimSpace(r.Header.Get(HeaderTimezone)),
		Lang:    PrimaryLanguage(r.Header.Get("Accept-Language")),
		Visitor: strings.TrimSpace(r.Header.Get(HeaderVisitorID)),
		Store:   NewCookieStorage(w, r, maxAge),
	}
}

// ParseResolution parses "WxH" (e.g. "1920x1080"). Malformed input yields 0, 0.
func ParseResolution(s string) (int, int) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(ws))
	h, err2 := strconv.Atoi(strings.TrimSpace(hs))
	if err1 != nil || err2 != nil || w < 0 || h < 0 {
		return 0, 0
	}
	return w, h
}

// PrimaryLanguage returns the first language tag of an Accept-Language value, without its quality weight.
func PrimaryLanguage(acceptLanguage string) string {
	first, _, _ := strings.Cut(acceptLanguage, ",")
	tag, _, _ := strings.Cut(first, ";")
	return strings.TrimSpace(tag)
}

// CookieStorage stores values as HttpOnly cookies on the response. Reads see the request's cookies
// overlaid with writes made during the same request. A value sent in the X-Session-Token header is
// accepted for SessionTokenKey when no cookie is present.
type CookieStorage struct {
	w      http.ResponseWriter
	r      *http.Request
	maxAge time.Duration

	mu      sync.Mutex
	pending map[string]*string
}

// NewCookieStorage returns storage bound to one request/response pair.
func NewCookieStorage(w http.ResponseWriter, r *http.Request, maxAge time.Duration) *CookieStorage {
	return &CookieStorage{w: w, r: r, maxAge: maxAge, pending: make(map[string]*string)}
}

func (c *CookieStorage) Get(key string) (string, bool) {
	c.mu.Lock()
	if v, ok := c.pending[key]; ok {
		c.mu.Unlock()
		if v == nil {
			return "", false
		}
		return *v, true
	}
	c.mu.Unlock()

	if ck, err := c.r.Cookie(key); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	if key == SessionTokenKey {
		if v := strings.TrimSpace(c.r.Header.Get(HeaderSessionToken)); v != "" {
			return v, true
		}
	}
	return "", false
}

func (c *CookieStorage) Set(key, value string) {
	c.mu.Lock()
	c.pending[key] = &value
	c.mu.Unlock()
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieStorage) Remove(key string) {
	c.mu.Lock()
	c.pending[key] = nil
	c.mu.Unlock()
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
