package playback

import (
	"math"
	"sync"
)

// CompletionThreshold is the watched percentage at which a lesson counts as complete.
const CompletionThreshold = 90.0

// ProgressTracker turns time updates into 0-100 progress and a one-shot completion.
// Safe for concurrent use.
type ProgressTracker struct {
	onProgress func(percent float64)
	onComplete func()

	mu        sync.Mutex
	completed bool
	last      float64
}

// NewProgressTracker returns a tracker. Either callback may be nil.
func NewProgressTracker(onProgress func(percent float64), onComplete func()) *ProgressTracker {
	return &ProgressTracker{onProgress: onProgress, onComplete: onComplete}
}

// Update reports the position. Unknown or zero durations are ignored.
func (p *ProgressTracker) Update(current, duration float64) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) || math.IsNaN(current) {
		return
	}
	pct := current / duration * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}

	p.mu.Lock()
	p.last = pct
	fire := pct >= CompletionThreshold && p.markComplete()
	p.mu.Unlock()

	if p.onProgress != nil {
		p.onProgress(pct)
	}
	if fire && p.onComplete != nil {
		p.onComplete()
	}
}

// Ended reports natural end of playback.
func (p *ProgressTracker) Ended() {
	p.mu.Lock()
	fire := p.markComplete()
	p.mu.Unlock()
	if fire && p.onComplete != nil {
		p.onComplete()
	}
}

// markComplete sets the flag and reports whether this call set it. Caller holds mu.
func (p *ProgressTracker) markComplete() bool {
	if p.completed {
		return false
	}
	p.completed = true
	return true
}

// Percent returns the last reported progress.
func (p *ProgressTracker) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Completed reports whether completion has fired.
func (p *ProgressTracker) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}
