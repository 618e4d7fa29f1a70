package playback

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"course-guard/internal/identity/domain"

	"github.com/stretchr/testify/require"
)

func TestGuard_MountDefault(t *testing.T) {
	f := newFakeSurface()
	viewer := &domain.Identity{AccountID: "0f3a9c21-77aa-4d0e", Email: "sara@example.com", DisplayName: "Sara"}
	g := New(f, DefaultOptions(), viewer)
	g.Mount()

	require.True(t, f.contextMenu)
	require.True(t, f.drag)
	require.False(t, f.selection, "selection suppression is aggressive-only")
	require.Nil(t, f.keyHandler)
	require.True(t, f.pipDisabled)
	require.True(t, f.dlDisabled)
	require.NotNil(t, f.watermark)
	require.Equal(t, "Sara · 0f3a9c21", f.watermark.Label())
	require.NotNil(t, g.Progress())

	f.hiddenHandler()
	pauses, _ := f.counts()
	require.Equal(t, 1, pauses)

	g.Unmount()
	require.False(t, f.contextMenu)
	require.False(t, f.drag)
	require.Nil(t, f.watermark)
	require.Nil(t, f.hiddenHandler)
	require.Nil(t, f.timeHandler)
}

func TestGuard_MountTwiceInstallsOnce(t *testing.T) {
	f := newFakeSurface()
	g := New(f, DefaultOptions(), nil)
	g.Mount()
	first := g.Progress()
	g.Mount()
	require.Same(t, first, g.Progress())
	g.Unmount()
	g.Unmount()
}

func TestGuard_TogglesAreIndependent(t *testing.T) {
	f := newFakeSurface()
	opts := Options{Watermark: true}
	g := New(f, opts, nil)
	g.Mount()
	defer g.Unmount()

	require.False(t, f.contextMenu)
	require.False(t, f.drag)
	require.False(t, f.pipDisabled)
	require.Nil(t, f.hiddenHandler)
	require.NotNil(t, f.watermark)
	require.Nil(t, g.Progress())
}

func TestGuard_AggressiveKeys(t *testing.T) {
	f := newFakeSurface()
	opts := AggressiveOptions()
	opts.DevtoolsInterval = time.Hour
	g := New(f, opts, nil)
	g.Mount()
	defer g.Unmount()

	require.True(t, f.selection)
	require.NotNil(t, f.keyHandler)

	require.True(t, f.keyHandler(Key{Key: "F12"}))
	require.True(t, f.keyHandler(Key{Key: "i", Ctrl: true, Shift: true}))
	require.False(t, f.keyHandler(Key{Key: "a"}))
	require.Equal(t, 0, f.clipCleared)

	require.True(t, f.keyHandler(Key{Key: "PrintScreen"}))
	require.Equal(t, 1, f.clipCleared)
	_, warnings := f.counts()
	require.Equal(t, []string{ScreenshotWarning}, warnings)
}

func TestGuard_DevtoolsDetectionPausesAndWarns(t *testing.T) {
	f := newFakeSurface()
	opts := AggressiveOptions()
	opts.DevtoolsInterval = 5 * time.Millisecond
	g := New(f, opts, nil)
	g.Mount()
	defer g.Unmount()

	f.setWindow(1280, 800, 900, 700)
	require.Eventually(t, func() bool {
		pauses, _ := f.counts()
		return pauses >= 1
	}, time.Second, 5*time.Millisecond)

	// Staying open does not pause again.
	time.Sleep(30 * time.Millisecond)
	pauses, warnings := f.counts()
	require.Equal(t, 1, pauses)
	require.Equal(t, []string{DevtoolsWarning}, warnings)
}

func TestGuard_DevtoolsMonitorSurvivesPanickingWindowProbe(t *testing.T) {
	f := &flakyWindowSurface{fakeSurface: newFakeSurface()}
	opts := AggressiveOptions()
	opts.DevtoolsInterval = 5 * time.Millisecond
	g := New(f, opts, nil)
	g.Mount()

	require.Eventually(t, func() bool { return f.probes.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NotPanics(t, g.Unmount)
	pauses, _ := f.counts()
	require.Equal(t, 0, pauses)
}

func TestGuard_DevtoolsMonitorSurvivesPanickingWarning(t *testing.T) {
	f := newFakeSurface()
	opts := AggressiveOptions()
	opts.DevtoolsInterval = 5 * time.Millisecond
	g := New(alertlessSurface{f}, opts, nil)
	g.Mount()
	defer g.Unmount()

	f.setWindow(1280, 800, 900, 700)
	require.Eventually(t, func() bool {
		pauses, _ := f.counts()
		return pauses == 1
	}, time.Second, 5*time.Millisecond)

	// Close and reopen: the sampler is still alive and pauses again.
	f.setWindow(1280, 800, 1280, 700)
	time.Sleep(20 * time.Millisecond)
	f.setWindow(1280, 800, 900, 700)
	require.Eventually(t, func() bool {
		pauses, _ := f.counts()
		return pauses == 2
	}, time.Second, 5*time.Millisecond)
}

func TestGuard_BareSurfaceDegrades(t *testing.T) {
	b := &bareSurface{}
	g := New(b, AggressiveOptions(), nil)
	require.NotPanics(t, g.Mount)
	require.Nil(t, g.Progress())
	require.NotPanics(t, g.Unmount)
	require.Equal(t, 0, b.pauses)
}

func TestGuard_FailingCapabilitiesDoNotPanic(t *testing.T) {
	g := New(&panickySurface{}, DefaultOptions(), nil)
	require.NotPanics(t, g.Mount)
	require.NotPanics(t, g.Unmount)
}

func TestGuard_NilSurface(t *testing.T) {
	g := New(nil, DefaultOptions(), nil)
	require.NotPanics(t, g.Mount)
	require.NotPanics(t, g.Unmount)
}

func TestGuard_ProgressCompletesOnce(t *testing.T) {
	f := newFakeSurface()
	var completions atomic.Int32
	var last float64
	opts := DefaultOptions()
	opts.OnProgress = func(p float64) { last = p }
	opts.OnComplete = func() { completions.Add(1) }
	g := New(f, opts, nil)
	g.Mount()
	defer g.Unmount()

	f.timeHandler(30, 100)
	require.InDelta(t, 30, last, 0.001)
	require.Zero(t, completions.Load())

	f.timeHandler(91, 100)
	f.timeHandler(95, 100)
	f.endedHandler()
	f.timeHandler(100, 100)
	require.Equal(t, int32(1), completions.Load())
	require.InDelta(t, 100, last, 0.001)
}

func TestWatermark_Fallbacks(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		name       string
		viewer     *domain.Identity
		brand      string
		wantText   string
		wantSuffix string
		wantStrip  string
	}{
		{"display name", &domain.Identity{AccountID: "abcdefgh12345", Email: "a@x.io", DisplayName: "Omar"}, "", "Omar", "abcdefgh", "2026-03-14 · a@x.io"},
		{"email when no name", &domain.Identity{AccountID: "abc", Email: "a@x.io"}, "", "a@x.io", "abc", "2026-03-14 · a@x.io"},
		{"brand when neither", &domain.Identity{AccountID: "abcdefgh12345"}, "Noor", "Noor", "abcdefgh", "2026-03-14 · Noor"},
		{"anonymous viewer", nil, "", DefaultBrand, "", "2026-03-14 · " + DefaultBrand},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := BuildWatermark(tc.viewer, tc.brand, now)
			require.Equal(t, tc.wantText, w.Text)
			require.NotEmpty(t, w.Label())
			require.Equal(t, tc.wantSuffix, w.Suffix)
			require.Equal(t, tc.wantStrip, w.Strip)
			require.False(t, w.PointerEvents)
			require.GreaterOrEqual(t, len(w.Positions), 5)

			rotated := 0
			for _, p := range w.Positions {
				if p.Rotation != 0 {
					rotated++
				}
			}
			require.Equal(t, 1, rotated)
			if tc.wantSuffix != "" {
				require.True(t, strings.HasSuffix(w.Label(), tc.wantSuffix))
			}
		})
	}
}
