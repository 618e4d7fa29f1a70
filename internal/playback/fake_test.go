package playback

import (
	"sync"
	"sync/atomic"
)

// fakeSurface implements every capability and records what the guard did.
type fakeSurface struct {
	mu sync.Mutex

	pauses        int
	contextMenu   bool
	drag          bool
	selection     bool
	pipDisabled   bool
	dlDisabled    bool
	clipCleared   int
	warnings      []string
	watermark     *Watermark
	keyHandler    func(Key) bool
	hiddenHandler func()
	timeHandler   func(cur, dur float64)
	endedHandler  func()
	window        [4]int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{window: [4]int{1280, 800, 1280, 700}}
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeSurface) SuppressContextMenu() Release {
	f.contextMenu = true
	return func() { f.contextMenu = false }
}

func (f *fakeSurface) SuppressDrag() Release {
	f.drag = true
	return func() { f.drag = false }
}

func (f *fakeSurface) SuppressSelection() Release {
	f.selection = true
	return func() { f.selection = false }
}

func (f *fakeSurface) OnKeyDown(h func(Key) bool) Release {
	f.keyHandler = h
	return func() { f.keyHandler = nil }
}

func (f *fakeSurface) OnVisibilityHidden(h func()) Release {
	f.hiddenHandler = h
	return func() { f.hiddenHandler = nil }
}

func (f *fakeSurface) DisablePictureInPicture() { f.pipDisabled = true }
func (f *fakeSurface) DisableDownload()         { f.dlDisabled = true }

func (f *fakeSurface) ShowWatermark(w Watermark) Release {
	f.watermark = &w
	return func() { f.watermark = nil }
}

func (f *fakeSurface) ClearClipboard() { f.clipCleared++ }

func (f *fakeSurface) Warn(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, msg)
}

func (f *fakeSurface) OnTimeUpdate(h func(cur, dur float64)) Release {
	f.timeHandler = h
	return func() { f.timeHandler = nil }
}

func (f *fakeSurface) OnEnded(h func()) Release {
	f.endedHandler = h
	return func() { f.endedHandler = nil }
}

func (f *fakeSurface) WindowSize() (int, int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window[0], f.window[1], f.window[2], f.window[3]
}

func (f *fakeSurface) setWindow(outerW, outerH, innerW, innerH int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = [4]int{outerW, outerH, innerW, innerH}
}

func (f *fakeSurface) counts() (pauses int, warnings []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, append([]string(nil), f.warnings...)
}

// bareSurface can only pause.
type bareSurface struct{ pauses int }

func (b *bareSurface) Pause() { b.pauses++ }

// panickySurface fails every optional capability.
type panickySurface struct{ bareSurface }

func (p *panickySurface) SuppressContextMenu() Release { panic("contextmenu unsupported") }
func (p *panickySurface) DisablePictureInPicture()     { panic("pip unsupported") }
func (p *panickySurface) ShowWatermark(Watermark) Release {
	panic("overlay unsupported")
}

// flakyWindowSurface panics on every window probe.
type flakyWindowSurface struct {
	*fakeSurface
	probes atomic.Int32
}

func (f *flakyWindowSurface) WindowSize() (int, int, int, int) {
	f.probes.Add(1)
	panic("outerWidth is undefined")
}

// alertlessSurface pauses but panics when asked to show a warning.
type alertlessSurface struct{ *fakeSurface }

func (a alertlessSurface) Warn(string) { panic("alert blocked") }
