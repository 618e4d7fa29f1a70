package fingerprint

import (
	"context"
	"errors"
	"testing"

	"course-guard/internal/clientenv"
)

type failingVisitorEnv struct {
	clientenv.Snapshot
}

func (f *failingVisitorEnv) VisitorID(context.Context) (string, error) {
	return "", errors.New("agent failed to load")
}

func TestResolve_ServerSide(t *testing.T) {
	r := NewResolver()
	if got := r.Resolve(context.Background()); got != ServerSide {
		t.Errorf("Resolve without environment = %q, want %q", got, ServerSide)
	}
	ctx := clientenv.WithEnvironment(context.Background(), clientenv.Null{})
	if got := r.Resolve(ctx); got != ServerSide {
		t.Errorf("Resolve with null environment = %q, want %q", got, ServerSide)
	}
}

func TestResolve_PrefersVisitorID(t *testing.T) {
	env := &clientenv.Snapshot{Agent: "UA", Width: 1920, Height: 1080, Lang: "ar", Visitor: "fp-visitor-1"}
	ctx := clientenv.WithEnvironment(context.Background(), env)
	if got := NewResolver().Resolve(ctx); got != "fp-visitor-1" {
		t.Errorf("Resolve = %q, want fp-visitor-1", got)
	}
}

func TestResolve_FallbackWhenVisitorEmpty(t *testing.T) {
	env := &clientenv.Snapshot{Agent: "UA", Width: 1920, Height: 1080, Lang: "ar"}
	ctx := clientenv.WithEnvironment(context.Background(), env)
	got := NewResolver().Resolve(ctx)
	if len(got) != fallbackLength {
		t.Fatalf("fallback length = %d, want %d", len(got), fallbackLength)
	}
	if got != Fallback(env) {
		t.Errorf("Resolve = %q, want Fallback %q", got, Fallback(env))
	}
}

func TestResolve_FallbackWhenVendorFails(t *testing.T) {
	env := &failingVisitorEnv{Snapshot: clientenv.Snapshot{Agent: "UA", Width: 390, Height: 844, Lang: "ar"}}
	ctx := clientenv.WithEnvironment(context.Background(), env)
	got := NewResolver().Resolve(ctx)
	if got == "" || got == ServerSide {
		t.Fatalf("Resolve = %q, want fallback digest", got)
	}
	if got != Fallback(env) {
		t.Errorf("Resolve = %q, want %q", got, Fallback(env))
	}
}

func TestFallback_DeterministicAndSignalSensitive(t *testing.T) {
	a := &clientenv.Snapshot{Agent: "UA", Width: 1920, Height: 1080, Lang: "ar"}
	b := &clientenv.Snapshot{Agent: "UA", Width: 1920, Height: 1080, Lang: "ar", TZ: "Asia/Riyadh"}
	c := &clientenv.Snapshot{Agent: "UA", Width: 1280, Height: 720, Lang: "ar"}

	if Fallback(a) != Fallback(b) {
		t.Error("fallback should only depend on user agent, resolution and language")
	}
	if Fallback(a) == Fallback(c) {
		t.Error("different resolutions should yield different fallback identities")
	}
}
