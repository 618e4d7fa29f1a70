package playback

import (
	"sync"
	"time"

	"course-guard/internal/identity/domain"
)

// Warning texts shown by the aggressive variant.
const (
	ScreenshotWarning = "التقاط الشاشة غير مسموح به أثناء مشاهدة الدروس."
	DevtoolsWarning   = "تم اكتشاف أدوات المطور. تم إيقاف الفيديو مؤقتاً."
)

// Options toggles each protection individually.
type Options struct {
	SuppressContextMenu bool
	SuppressDrag        bool
	// Aggressive adds text-selection suppression, devtools shortcut blocking, PrintScreen handling
	// and the devtools-dimension monitor.
	Aggressive       bool
	PauseWhenHidden  bool
	DisablePiP       bool
	DisableDownload  bool
	Watermark        bool
	TrackProgress    bool
	DevtoolsInterval time.Duration

	// Brand labels the watermark for viewers with neither name nor email.
	Brand string
	// OnProgress receives 0-100 on each time update.
	OnProgress func(percent float64)
	// OnComplete fires once, at 90% or natural end.
	OnComplete func()
}

// DefaultOptions enables the standard (non-aggressive) protections.
func DefaultOptions() Options {
	return Options{
		SuppressContextMenu: true,
		SuppressDrag:        true,
		PauseWhenHidden:     true,
		DisablePiP:          true,
		DisableDownload:     true,
		Watermark:           true,
		TrackProgress:       true,
	}
}

// AggressiveOptions is DefaultOptions plus the page-wide variant.
func AggressiveOptions() Options {
	o := DefaultOptions()
	o.Aggressive = true
	return o
}

// Guard wraps one lesson video. Mount installs the enabled protections; Unmount removes them.
type Guard struct {
	surface Surface
	opts    Options
	viewer  *domain.Identity
	now     func() time.Time

	mu       sync.Mutex
	mounted  bool
	releases []Release
	progress *ProgressTracker
	monitor  *DevtoolsMonitor
}

// New returns an unmounted Guard for surface. viewer may be nil.
func New(surface Surface, opts Options, viewer *domain.Identity) *Guard {
	return &Guard{surface: surface, opts: opts, viewer: viewer, now: time.Now}
}

// Mount installs the protections the surface supports. Mounting twice does nothing.
func (g *Guard) Mount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mounted || g.surface == nil {
		return
	}
	g.mounted = true
	s, o := g.surface, g.opts

	if c, ok := s.(ContextMenuSuppressor); ok && o.SuppressContextMenu {
		g.install(c.SuppressContextMenu)
	}
	if d, ok := s.(DragSuppressor); ok && o.SuppressDrag {
		g.install(d.SuppressDrag)
	}
	if v, ok := s.(VisibilityNotifier); ok && o.PauseWhenHidden {
		g.install(func() Release { return v.OnVisibilityHidden(s.Pause) })
	}
	if p, ok := s.(PictureInPictureDisabler); ok && o.DisablePiP {
		g.install(func() Release { p.DisablePictureInPicture(); return nil })
	}
	if d, ok := s.(DownloadDisabler); ok && o.DisableDownload {
		g.install(func() Release { d.DisableDownload(); return nil })
	}
	if w, ok := s.(WatermarkRenderer); ok && o.Watermark {
		wm := BuildWatermark(g.viewer, o.Brand, g.now())
		g.install(func() Release { return w.ShowWatermark(wm) })
	}
	if p, ok := s.(ProgressSource); ok && o.TrackProgress {
		g.progress = NewProgressTracker(o.OnProgress, o.OnComplete)
		g.install(func() Release { return p.OnTimeUpdate(g.progress.Update) })
		g.install(func() Release { return p.OnEnded(g.progress.Ended) })
	}
	if o.Aggressive {
		g.mountAggressive()
	}
}

func (g *Guard) mountAggressive() {
	s := g.surface
	if sel, ok := s.(SelectionSuppressor); ok {
		g.install(sel.SuppressSelection)
	}
	if k, ok := s.(KeyInterceptor); ok {
		g.install(func() Release { return k.OnKeyDown(g.handleKey) })
	}
	if m, ok := s.(WindowMetrics); ok {
		g.monitor = NewDevtoolsMonitor(m, g.opts.DevtoolsInterval, g.devtoolsOpened)
		g.monitor.Start()
	}
}

// handleKey blocks devtools shortcuts and answers PrintScreen by clearing the clipboard and warning.
func (g *Guard) handleKey(k Key) bool {
	if PrintScreen(k) {
		if c, ok := g.surface.(ClipboardClearer); ok {
			c.ClearClipboard()
		}
		g.warn(ScreenshotWarning)
		return true
	}
	return DevtoolsShortcut(k)
}

func (g *Guard) devtoolsOpened() {
	g.surface.Pause()
	g.warn(DevtoolsWarning)
}

func (g *Guard) warn(msg string) {
	if a, ok := g.surface.(Alerter); ok {
		a.Warn(msg)
	}
}

// install runs one protection step. A step that panics is skipped so an unsupported page
// never breaks playback. Caller holds mu.
func (g *Guard) install(step func() Release) {
	defer func() { _ = recover() }()
	if r := step(); r != nil {
		g.releases = append(g.releases, r)
	}
}

// Unmount removes every installed protection in reverse order and stops the devtools monitor.
func (g *Guard) Unmount() {
	g.mu.Lock()
	releases, monitor := g.releases, g.monitor
	g.releases, g.monitor, g.mounted = nil, nil, false
	g.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	for i := len(releases) - 1; i >= 0; i-- {
		func() {
			defer func() { _ = recover() }()
			releases[i]()
		}()
	}
}

// Progress returns the tracker installed by Mount, or nil when progress tracking is off or unsupported.
func (g *Guard) Progress() *ProgressTracker {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress
}
