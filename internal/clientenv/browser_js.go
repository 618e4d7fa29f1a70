//go:build js && wasm

package clientenv

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"
)

// Browser reads device signals from the page globals. The vendor visitor id comes from the
// FingerprintJS agent when the page has loaded it under window.FingerprintJS.
type Browser struct {
	global js.Value
}

// NewBrowser returns the environment of the current page. Outside a window context it reports
// IsBrowser false so callers take the server-side path.
func NewBrowser() *Browser {
	return &Browser{global: js.Global()}
}

func (b *Browser) IsBrowser() bool {
	return truthy(b.global.Get("window")) && truthy(b.global.Get("navigator"))
}

func (b *Browser) UserAgent() string {
	return stringProp(b.global.Get("navigator"), "userAgent")
}

func (b *Browser) Screen() (int, int) {
	scr := b.global.Get("screen")
	if !truthy(scr) {
		return 0, 0
	}
	return intProp(scr, "width"), intProp(scr, "height")
}

func (b *Browser) Timezone() (tz string) {
	defer func() {
		if recover() != nil {
			tz = ""
		}
	}()
	intl := b.global.Get("Intl")
	if !truthy(intl) {
		return ""
	}
	return stringProp(intl.Get("DateTimeFormat").Invoke().Call("resolvedOptions"), "timeZone")
}

func (b *Browser) Language() string {
	return stringProp(b.global.Get("navigator"), "language")
}

func (b *Browser) VisitorID(ctx context.Context) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("clientenv: fingerprint agent: %v", r)
		}
	}()
	agent := b.global.Get("FingerprintJS")
	if !truthy(agent) {
		return "", errors.New("clientenv: fingerprint agent not loaded")
	}
	fp, err := await(ctx, agent.Call("load"))
	if err != nil {
		return "", err
	}
	result, err := await(ctx, fp.Call("get"))
	if err != nil {
		return "", err
	}
	return stringProp(result, "visitorId"), nil
}

func (b *Browser) Storage() Storage {
	ls := b.global.Get("localStorage")
	if !truthy(ls) {
		return discardStorage{}
	}
	return localStorage{v: ls}
}

type localStorage struct {
	v js.Value
}

func (s localStorage) Get(key string) (string, bool) {
	item := s.v.Call("getItem", key)
	if item.IsNull() || item.IsUndefined() {
		return "", false
	}
	return item.String(), true
}

func (s localStorage) Set(key, value string) {
	defer func() { _ = recover() }() // quota errors surface as JS exceptions
	s.v.Call("setItem", key, value)
}

func (s localStorage) Remove(key string) {
	s.v.Call("removeItem", key)
}

// await blocks until promise settles or ctx is done.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	type outcome struct {
		v   js.Value
		err error
	}
	done := make(chan outcome, 1)
	onResolve := js.FuncOf(func(this js.Value, args []js.Value) any {
		v := js.Undefined()
		if len(args) > 0 {
			v = args[0]
		}
		done <- outcome{v: v}
		return nil
	})
	onReject := js.FuncOf(func(this js.Value, args []js.Value) any {
		msg := "promise rejected"
		if len(args) > 0 && truthy(args[0]) {
			msg = args[0].Call("toString").String()
		}
		done <- outcome{err: errors.New(msg)}
		return nil
	})
	promise.Call("then", onResolve, onReject)
	o, err := waitSettled(ctx, done, func() {
		onResolve.Release()
		onReject.Release()
	})
	if err != nil {
		return js.Undefined(), err
	}
	return o.v, o.err
}

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull() && v.Truthy()
}

func stringProp(v js.Value, name string) string {
	if !truthy(v) {
		return ""
	}
	p := v.Get(name)
	if p.Type() != js.TypeString {
		return ""
	}
	return p.String()
}

func intProp(v js.Value, name string) int {
	p := v.Get(name)
	if p.Type() != js.TypeNumber {
		return 0
	}
	return p.Int()
}
