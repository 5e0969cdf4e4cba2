// Package mock provides a simulated audio.Handle for tests.
package mock

import (
	"sync"

	"github.com/MrWong99/singalong/internal/audio"
)

// Handle is a test double for [audio.Handle] with a manually advanced
// clock. All methods are safe for concurrent use.
type Handle struct {
	mu          sync.Mutex
	currentTime float64
	duration    float64
	paused      bool
	playErr     error
	endedFns    []func()

	playCalls    int
	pauseCalls   int
	setTimeCalls int
}

var _ audio.Handle = (*Handle)(nil)

// NewHandle returns a paused handle at time zero with the given duration.
func NewHandle(duration float64) *Handle {
	return &Handle{duration: duration, paused: true}
}

// FailPlay makes subsequent Play calls return err (nil to clear).
func (h *Handle) FailPlay(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playErr = err
}

func (h *Handle) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentTime
}

func (h *Handle) SetCurrentTime(t float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setTimeCalls++
	h.currentTime = t
}

func (h *Handle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playCalls++
	if h.playErr != nil {
		return h.playErr
	}
	h.paused = false
	return nil
}

func (h *Handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauseCalls++
	h.paused = true
}

func (h *Handle) OnEnded(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endedFns = append(h.endedFns, fn)
}

// Advance moves the clock forward by dt seconds when playing. Reaching
// the duration pauses the handle and fires the ended callbacks.
func (h *Handle) Advance(dt float64) {
	h.mu.Lock()
	if h.paused {
		h.mu.Unlock()
		return
	}
	h.currentTime += dt
	ended := h.duration > 0 && h.currentTime >= h.duration
	var fns []func()
	if ended {
		h.currentTime = h.duration
		h.paused = true
		fns = append(fns, h.endedFns...)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Drift shifts the clock by dt seconds without touching play state,
// simulating decoder drift.
func (h *Handle) Drift(dt float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentTime += dt
}

// PlayCalls returns the number of Play invocations.
func (h *Handle) PlayCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playCalls
}

// PauseCalls returns the number of Pause invocations.
func (h *Handle) PauseCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pauseCalls
}

// SetTimeCalls returns the number of SetCurrentTime invocations.
func (h *Handle) SetTimeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setTimeCalls
}

// FireEnded invokes the registered ended callbacks directly.
func (h *Handle) FireEnded() {
	h.mu.Lock()
	fns := append([]func(){}, h.endedFns...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
