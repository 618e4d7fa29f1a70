package clientip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"course-guard/internal/logging"
)

const (
	// DefaultEchoURL is the public IP-echo service used when the page configures none.
	DefaultEchoURL     = "https://api.ipify.org?format=json"
	defaultEchoTimeout = 3 * time.Second
	// echoCacheTTL bounds how long a looked-up address is reused.
	echoCacheTTL = 5 * time.Minute
	maxEchoBody  = 1 << 10
)

// EchoResolver asks an external IP-echo service (response body {"ip": "..."}) for the caller's address.
// It runs in the browser build, where the echo service sees the viewer's own address; the result is
// forwarded to the server in HeaderEchoIP. Successful answers are cached; failures resolve to Unknown
// and are not cached.
type EchoResolver struct {
	url    string
	client *http.Client
	cache  *ttlcache.Cache[string, string]
}

// NewEchoResolver creates a resolver for url with the given per-call timeout (3s when <= 0).
func NewEchoResolver(url string, timeout time.Duration) *EchoResolver {
	if timeout <= 0 {
		timeout = defaultEchoTimeout
	}
	return &EchoResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cache: ttlcache.New(
			ttlcache.WithTTL[string, string](echoCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

// Resolve returns the echoed address, or Unknown on any failure.
func (e *EchoResolver) Resolve(ctx context.Context) string {
	if e == nil || e.url == "" {
		return Unknown
	}
	if item := e.cache.Get(e.url); item != nil {
		return item.Value()
	}
	ip, err := e.fetch(ctx)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("clientip: echo lookup failed")
		return Unknown
	}
	e.cache.Set(e.url, ip, ttlcache.DefaultTTL)
	return ip
}

func (e *EchoResolver) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("echo status %d", resp.StatusCode)
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEchoBody)).Decode(&body); err != nil {
		return "", err
	}
	if net.ParseIP(body.IP) == nil {
		return "", fmt.Errorf("echo returned invalid ip %q", body.IP)
	}
	return body.IP, nil
}
