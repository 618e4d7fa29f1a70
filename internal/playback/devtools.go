package playback

import (
	"sync"
	"time"
)

const (
	// DevtoolsInterval is how often window dimensions are sampled.
	DevtoolsInterval = time.Second
	// devtoolsGap is the outer/inner size difference taken as a docked devtools panel.
	devtoolsGap = 160
)

// DevtoolsOpen reports whether the window dimensions suggest a docked devtools panel.
func DevtoolsOpen(outerW, outerH, innerW, innerH int) bool {
	return outerW-innerW > devtoolsGap || outerH-innerH > devtoolsGap
}

// DevtoolsMonitor samples window dimensions on an interval and calls onOpen each time devtools
// go from closed to open. Safe for concurrent use.
type DevtoolsMonitor struct {
	metrics  WindowMetrics
	onOpen   func()
	interval time.Duration

	mu   sync.Mutex
	open bool
	stop chan struct{}
	done chan struct{}
}

// NewDevtoolsMonitor returns a stopped monitor. interval <= 0 means DevtoolsInterval.
func NewDevtoolsMonitor(metrics WindowMetrics, interval time.Duration, onOpen func()) *DevtoolsMonitor {
	if interval <= 0 {
		interval = DevtoolsInterval
	}
	return &DevtoolsMonitor{metrics: metrics, onOpen: onOpen, interval: interval}
}

// Start begins sampling. Calling Start on a running monitor does nothing.
func (m *DevtoolsMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil || m.metrics == nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
}

// Stop halts sampling and waits for the sampler to exit.
func (m *DevtoolsMonitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (m *DevtoolsMonitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.Sample()
		}
	}
}

// Sample checks the dimensions once. A panic from the window probe or from onOpen is swallowed
// so the sampler keeps running.
func (m *DevtoolsMonitor) Sample() {
	defer func() { _ = recover() }()
	open := DevtoolsOpen(m.metrics.WindowSize())
	m.mu.Lock()
	opened := open && !m.open
	m.open = open
	m.mu.Unlock()
	if opened && m.onOpen != nil {
		m.onOpen()
	}
}
