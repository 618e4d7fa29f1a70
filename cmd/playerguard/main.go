//go:build js && wasm

// Command playerguard is the browser build of the device resolver and the playback guard.
// It registers courseGuardResolveDevice, courseGuardMount and courseGuardUnmount on the page.
package main

import (
	"context"
	"sync"
	"syscall/js"

	"course-guard/internal/clientenv"
	"course-guard/internal/clientip"
	"course-guard/internal/device/domain"
	"course-guard/internal/device/fingerprint"
	identitydomain "course-guard/internal/identity/domain"
	"course-guard/internal/playback"
	"course-guard/internal/playback/dom"

	"github.com/google/uuid"
)

var (
	mu     sync.Mutex
	guards = map[string]*playback.Guard{}
	echoes = map[string]*clientip.EchoResolver{}
)

func main() {
	js.Global().Set("courseGuardResolveDevice", js.FuncOf(resolveDevice))
	js.Global().Set("courseGuardMount", js.FuncOf(mount))
	js.Global().Set("courseGuardUnmount", js.FuncOf(unmount))
	select {}
}

// resolveDevice(options) returns a promise of {fingerprint, label, ip}.
// options: {ipEchoURL}. ip is the viewer's address as seen by the echo service ("unknown" on failure);
// the page sends it to the API in the X-Client-Echo-IP header.
func resolveDevice(this js.Value, args []js.Value) any {
	echoURL := clientip.DefaultEchoURL
	if len(args) > 0 && args[0].Type() == js.TypeObject {
		if u := stringField(args[0], "ipEchoURL"); u != "" {
			echoURL = u
		}
	}
	return async(func(resolve, reject js.Value) {
		env := clientenv.NewBrowser()
		ctx := clientenv.WithEnvironment(context.Background(), env)
		fp := fingerprint.NewResolver().Resolve(ctx)
		resolve.Invoke(js.ValueOf(map[string]any{
			"fingerprint": fp,
			"label":       domain.LabelFor(env.UserAgent()),
			"ip":          echo(echoURL).Resolve(ctx),
		}))
	})
}

// echo returns the cached resolver for url so repeated calls reuse the looked-up address.
func echo(url string) *clientip.EchoResolver {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := echoes[url]; ok {
		return e
	}
	e := clientip.NewEchoResolver(url, 0)
	echoes[url] = e
	return e
}

// mount(video, options) installs a guard and returns its handle.
// options: {aggressive, brand, viewer: {id, email, name}, onProgress(pct), onComplete()}.
func mount(this js.Value, args []js.Value) any {
	if len(args) == 0 {
		return js.ValueOf(nil)
	}
	surface, err := dom.NewSurface(args[0])
	if err != nil {
		return js.ValueOf(nil)
	}
	opts := playback.DefaultOptions()
	var viewer *identitydomain.Identity
	if len(args) > 1 && args[1].Type() == js.TypeObject {
		in := args[1]
		opts.Aggressive = boolField(in, "aggressive")
		opts.Brand = stringField(in, "brand")
		if v := in.Get("viewer"); v.Type() == js.TypeObject {
			viewer = &identitydomain.Identity{
				AccountID:   stringField(v, "id"),
				Email:       stringField(v, "email"),
				DisplayName: stringField(v, "name"),
			}
		}
		if cb := in.Get("onProgress"); cb.Type() == js.TypeFunction {
			opts.OnProgress = func(pct float64) { invoke(cb, pct) }
		}
		if cb := in.Get("onComplete"); cb.Type() == js.TypeFunction {
			opts.OnComplete = func() { invoke(cb) }
		}
	}

	g := playback.New(surface, opts, viewer)
	g.Mount()
	handle := uuid.NewString()
	mu.Lock()
	guards[handle] = g
	mu.Unlock()
	return js.ValueOf(handle)
}

// invoke calls a page callback, swallowing anything it throws.
func invoke(cb js.Value, args ...any) {
	defer func() { _ = recover() }()
	cb.Invoke(args...)
}

func unmount(this js.Value, args []js.Value) any {
	if len(args) == 0 {
		return nil
	}
	handle := args[0].String()
	mu.Lock()
	g := guards[handle]
	delete(guards, handle)
	mu.Unlock()
	if g != nil {
		g.Unmount()
	}
	return nil
}

func stringField(v js.Value, name string) string {
	f := v.Get(name)
	if f.Type() != js.TypeString {
		return ""
	}
	return f.String()
}

func boolField(v js.Value, name string) bool {
	f := v.Get(name)
	return f.Type() == js.TypeBoolean && f.Bool()
}

func async(fn func(resolve, reject js.Value)) js.Value {
	promise := js.Global().Get("Promise")
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve := args[0]
		reject := args[1]
		go fn(resolve, reject)
		return nil
	})
	return promise.New(handler)
}
