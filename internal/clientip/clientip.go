// Package clientip resolves the best-effort client IP address recorded on sessions and audit rows.
package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Unknown is recorded whenever the address cannot be determined.
const Unknown = "unknown"

// HeaderEchoIP carries the address the browser looked up from an IP-echo service.
const HeaderEchoIP = "X-Client-Echo-IP"

type (
	ctxKey      struct{}
	reportedKey struct{}
)

// WithIP returns a context carrying the request's client IP.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// FromContext returns the client IP stored by WithIP, or "" when absent.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}

// FromRequest extracts the client IP: first X-Forwarded-For entry, then X-Real-IP, then RemoteAddr without port.
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithReportedIP returns a context carrying the browser-reported echo address.
func WithReportedIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, reportedKey{}, ip)
}

// ReportedFromContext returns the address stored by WithReportedIP, or "" when absent.
func ReportedFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(reportedKey{}).(string)
	return ip
}

// Middleware stores FromRequest(r) in the request context, plus the HeaderEchoIP address when it parses.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithIP(r.Context(), FromRequest(r))
		if reported := strings.TrimSpace(r.Header.Get(HeaderEchoIP)); net.ParseIP(reported) != nil {
			ctx = WithReportedIP(ctx, reported)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolver returns a client IP for the current operation; it never fails and falls back to Unknown.
type Resolver interface {
	Resolve(ctx context.Context) string
}

// RequestResolver reads the address captured by Middleware.
type RequestResolver struct{}

// Resolve returns the context IP or Unknown.
func (RequestResolver) Resolve(ctx context.Context) string {
	if ip := FromContext(ctx); ip != "" {
		return ip
	}
	return Unknown
}

// ReportedResolver reads the address the browser obtained from its IP-echo lookup (HeaderEchoIP).
// A missing or malformed report resolves to Unknown.
type ReportedResolver struct{}

// Resolve returns the reported IP or Unknown.
func (ReportedResolver) Resolve(ctx context.Context) string {
	if ip := ReportedFromContext(ctx); ip != "" {
		return ip
	}
	return Unknown
}
