package audio

import (
	"sync"
	"time"
)

// Clock is a [Handle] backed by the wall clock instead of a real media
// element. The server runs the engine against two Clocks while the
// browser plays the actual audio and follows the broadcast position.
//
// Playback past the duration pauses the clock at the end and fires the
// ended callbacks.
type Clock struct {
	mu        sync.Mutex
	duration  float64
	pos       float64   // position at the last state change
	startedAt time.Time // wall time of the last Play; zero while paused
	playing   bool
	endedFns  []func()
	endTimer  *time.Timer
}

var _ Handle = (*Clock)(nil)

// NewClock returns a paused Clock at position zero.
func NewClock(duration float64) *Clock {
	if duration < 0 {
		duration = 0
	}
	return &Clock{duration: duration}
}

func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Clock) SetCurrentTime(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t < 0 {
		t = 0
	}
	if t > c.duration {
		t = c.duration
	}
	c.pos = t
	if c.playing {
		c.startedAt = time.Now()
		c.scheduleEndLocked()
	}
}

func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.playing
}

func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing || c.pos >= c.duration {
		return nil
	}
	c.playing = true
	c.startedAt = time.Now()
	c.scheduleEndLocked()
	return nil
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return
	}
	c.pos = c.positionLocked()
	c.playing = false
	c.startedAt = time.Time{}
	if c.endTimer != nil {
		c.endTimer.Stop()
		c.endTimer = nil
	}
}

func (c *Clock) OnEnded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endedFns = append(c.endedFns, fn)
}

// positionLocked returns the current position, capped at the duration.
// Must be called with c.mu held.
func (c *Clock) positionLocked() float64 {
	if !c.playing {
		return c.pos
	}
	pos := c.pos + time.Since(c.startedAt).Seconds()
	if pos > c.duration {
		pos = c.duration
	}
	return pos
}

// scheduleEndLocked (re)arms the end-of-track timer for the remaining
// play time. Must be called with c.mu held while playing.
func (c *Clock) scheduleEndLocked() {
	if c.endTimer != nil {
		c.endTimer.Stop()
	}
	remaining := time.Duration((c.duration - c.pos) * float64(time.Second))
	c.endTimer = time.AfterFunc(remaining, c.end)
}

// end fires when the play position reaches the duration.
func (c *Clock) end() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.pos = c.duration
	c.playing = false
	c.startedAt = time.Time{}
	c.endTimer = nil
	fns := append([]func(){}, c.endedFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
