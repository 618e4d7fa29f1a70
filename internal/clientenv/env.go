// Package clientenv abstracts the ambient client state (device signals and the client-side key/value
// storage) that device fingerprinting and the session-token cache read from.
//
// Three providers exist: Null for server-side contexts with no real device, Snapshot for signals
// captured from an HTTP request (or built in tests), and the js/wasm browser provider.
package clientenv

import "context"

// Environment exposes the device signals and client storage of the caller.
type Environment interface {
	// IsBrowser reports whether a real client device backs this environment.
	IsBrowser() bool
	UserAgent() string
	// Screen returns the screen resolution in CSS pixels; zero when unknown.
	Screen() (width, height int)
	Timezone() string
	Language() string
	// VisitorID returns the vendor fingerprinting signal. An empty id or an error means it is unavailable.
	VisitorID(ctx context.Context) (string, error)
	Storage() Storage
}

// Storage is the client-private key/value store used for the cached session token.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// SessionTokenKey is the storage key the session token is cached under.
const SessionTokenKey = "course_session"

type ctxKey struct{}

// WithEnvironment returns a copy of ctx carrying env.
func WithEnvironment(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

// FromContext returns the environment stored in ctx, or Null when none is present.
func FromContext(ctx context.Context) Environment {
	if env, ok := ctx.Value(ctxKey{}).(Environment); ok && env != nil {
		return env
	}
	return Null{}
}

// Null is the environment of server-side execution: no device signals and storage that retains nothing.
type Null struct{}

func (Null) IsBrowser() bool                           { return false }
func (Null) UserAgent() string                         { return "" }
func (Null) Screen() (int, int)                        { return 0, 0 }
func (Null) Timezone() string                          { return "" }
func (Null) Language() string                          { return "" }
func (Null) VisitorID(context.Context) (string, error) { return "", nil }
func (Null) Storage() Storage                          { return discardStorage{} }

type discardStorage struct{}

func (discardStorage) Get(string) (string, bool) { return "", false }
func (discardStorage) Set(string, string)        {}
func (discardStorage) Remove(string)             {}

// Snapshot is an Environment built from already-captured signals.
type Snapshot struct {
	Agent   string
	Width   int
	Height  int
	TZ      string
	Lang    string
	Visitor string
	Store   Storage
}

func (s *Snapshot) IsBrowser() bool    { return true }
func (s *Snapshot) UserAgent() string  { return s.Agent }
func (s *Snapshot) Screen() (int, int) { return s.Width, s.Height }
func (s *Snapshot) Timezone() string   { return s.TZ }
func (s *Snapshot) Language() string   { return s.Lang }

func (s *Snapshot) VisitorID(context.Context) (string, error) { return s.Visitor, nil }

func (s *Snapshot) Storage() Storage {
	if s.Store == nil {
		s.Store = NewMemoryStorage()
	}
	return s.Store
}
