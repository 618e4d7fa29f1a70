//go:build js && wasm

// Package dom implements the playback Surface over a page's video element.
package dom

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall/js"

	"course-guard/internal/playback"
)

// Surface is a <video> element and the document hosting it.
type Surface struct {
	video js.Value
	doc   js.Value
	win   js.Value
}

// NewSurface wraps video. It returns an error when video is not an element.
func NewSurface(video js.Value) (*Surface, error) {
	if video.IsUndefined() || video.IsNull() || video.Type() != js.TypeObject {
		return nil, errors.New("dom: not a video element")
	}
	g := js.Global()
	return &Surface{video: video, doc: g.Get("document"), win: g}, nil
}

func (s *Surface) Pause() {
	defer func() { _ = recover() }()
	s.video.Call("pause")
}

func (s *Surface) SuppressContextMenu() playback.Release {
	return s.preventDefault(s.video, "contextmenu")
}

func (s *Surface) SuppressDrag() playback.Release {
	return s.preventDefault(s.video, "dragstart")
}

func (s *Surface) SuppressSelection() playback.Release {
	style := s.doc.Get("body").Get("style")
	prev := style.Get("userSelect").String()
	style.Set("userSelect", "none")
	stop := s.preventDefault(s.doc, "selectstart")
	return once(func() {
		stop()
		style.Set("userSelect", prev)
	})
}

func (s *Surface) OnKeyDown(handler func(playback.Key) bool) playback.Release {
	return listen(s.doc, "keydown", func(ev js.Value) {
		k := playback.Key{
			Key:   ev.Get("key").String(),
			Ctrl:  ev.Get("ctrlKey").Bool(),
			Meta:  ev.Get("metaKey").Bool(),
			Shift: ev.Get("shiftKey").Bool(),
			Alt:   ev.Get("altKey").Bool(),
		}
		if handler(k) {
			ev.Call("preventDefault")
			ev.Call("stopPropagation")
		}
	})
}

func (s *Surface) OnVisibilityHidden(handler func()) playback.Release {
	return listen(s.doc, "visibilitychange", func(js.Value) {
		if s.doc.Get("hidden").Bool() {
			handler()
		}
	})
}

func (s *Surface) DisablePictureInPicture() {
	s.video.Set("disablePictureInPicture", true)
}

func (s *Surface) DisableDownload() {
	s.video.Call("setAttribute", "controlsList", "nodownload")
}

// ShowWatermark appends an absolutely positioned overlay to the video's parent.
func (s *Surface) ShowWatermark(w playback.Watermark) playback.Release {
	parent := s.video.Get("parentElement")
	if parent.IsNull() || parent.IsUndefined() {
		return nil
	}
	if parent.Get("style").Get("position").String() == "" {
		parent.Get("style").Set("position", "relative")
	}
	overlay := s.element("div", map[string]string{
		"position":      "absolute",
		"inset":         "0",
		"pointerEvents": "none",
		"userSelect":    "none",
		"zIndex":        "10",
		"overflow":      "hidden",
	})
	for _, p := range w.Positions {
		mark := s.element("span", map[string]string{
			"position":      "absolute",
			"top":           fmt.Sprintf("%.0f%%", p.Top),
			"left":          fmt.Sprintf("%.0f%%", p.Left),
			"transform":     fmt.Sprintf("rotate(%.0fdeg)", p.Rotation),
			"opacity":       fmt.Sprintf("%.2f", w.Opacity),
			"color":         "#fff",
			"fontSize":      "14px",
			"whiteSpace":    "nowrap",
			"pointerEvents": "none",
		})
		mark.Set("textContent", w.Label())
		overlay.Call("appendChild", mark)
	}
	strip := s.element("div", map[string]string{
		"position":      "absolute",
		"bottom":        "0",
		"width":         "100%",
		"textAlign":     "center",
		"opacity":       fmt.Sprintf("%.2f", w.Opacity),
		"color":         "#fff",
		"fontSize":      "11px",
		"pointerEvents": "none",
	})
	strip.Set("textContent", w.Strip)
	overlay.Call("appendChild", strip)
	parent.Call("appendChild", overlay)
	return once(func() { overlay.Call("remove") })
}

func (s *Surface) ClearClipboard() {
	defer func() { _ = recover() }()
	clip := s.win.Get("navigator").Get("clipboard")
	if clip.IsUndefined() || clip.IsNull() {
		return
	}
	// The returned promise rejects without focus; nothing to do about it.
	clip.Call("writeText", "")
}

func (s *Surface) Warn(message string) {
	if s.win.Get("alert").Type() != js.TypeFunction {
		return
	}
	s.win.Call("alert", message)
}

func (s *Surface) OnTimeUpdate(handler func(current, duration float64)) playback.Release {
	return listen(s.video, "timeupdate", func(js.Value) {
		handler(s.video.Get("currentTime").Float(), s.video.Get("duration").Float())
	})
}

func (s *Surface) OnEnded(handler func()) playback.Release {
	return listen(s.video, "ended", func(js.Value) { handler() })
}

func (s *Surface) WindowSize() (int, int, int, int) {
	return intProp(s.win, "outerWidth"), intProp(s.win, "outerHeight"),
		intProp(s.win, "innerWidth"), intProp(s.win, "innerHeight")
}

// intProp reads a numeric property, 0 when it is missing or not a number.
func intProp(v js.Value, name string) int {
	p := v.Get(name)
	if p.Type() != js.TypeNumber {
		return 0
	}
	return p.Int()
}

func (s *Surface) preventDefault(target js.Value, event string) playback.Release {
	return listen(target, event, func(ev js.Value) { ev.Call("preventDefault") })
}

func (s *Surface) element(tag string, style map[string]string) js.Value {
	el := s.doc.Call("createElement", tag)
	st := el.Get("style")
	for k, v := range style {
		st.Set(k, v)
	}
	el.Call("setAttribute", "aria-hidden", "true")
	el.Set("className", "course-guard-"+strings.ToLower(tag))
	return el
}

func listen(target js.Value, event string, fn func(ev js.Value)) playback.Release {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		// A panic here would bring down the wasm runtime and every mounted guard.
		defer func() { _ = recover() }()
		if len(args) > 0 {
			fn(args[0])
		}
		return nil
	})
	target.Call("addEventListener", event, cb)
	return once(func() {
		target.Call("removeEventListener", event, cb)
		cb.Release()
	})
}

func once(fn func()) playback.Release {
	var o sync.Once
	return func() { o.Do(fn) }
}
