package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/MrWong99/singalong/internal/observe"
)

// Sync policy constants. After any operation returns and the settle
// delay has elapsed, the vocal track is guaranteed within the sync
// tolerance of the instrumental clock.
const (
	// defaultSyncTolerance is the post-settle drift bound in seconds.
	defaultSyncTolerance = 0.1

	// preSyncThreshold is the drift in seconds above which play snaps
	// the vocal track before starting.
	preSyncThreshold = 0.05

	// defaultPlaySettle is the delay before re-verifying sync after play.
	defaultPlaySettle = 100 * time.Millisecond

	// defaultSeekSettle is the delay before verifying sync after a seek.
	defaultSeekSettle = 50 * time.Millisecond
)

// Option configures a [Controller].
type Option func(*Controller)

// WithSyncTolerance sets the allowed drift in seconds between the vocal
// and instrumental clocks after settle. Default: 0.1.
func WithSyncTolerance(seconds float64) Option {
	return func(c *Controller) {
		if seconds > 0 {
			c.syncTolerance = seconds
		}
	}
}

// WithoutVocalMuting disables the vocal gating behaviour entirely;
// SetVocalMuted becomes a no-op.
func WithoutVocalMuting() Option {
	return func(c *Controller) { c.mutingEnabled = false }
}

// WithSettleDelays overrides the post-play and post-seek settle delays.
// Intended for tests.
func WithSettleDelays(play, seek time.Duration) Option {
	return func(c *Controller) {
		c.playSettle = play
		c.seekSettle = seek
	}
}

// WithMetrics sets the metrics instance sync corrections are recorded
// on. Defaults to [observe.Default].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller keeps the instrumental and vocal streams in lockstep. The
// instrumental handle is the timing authority: every read accessor
// delegates to it, and drift is always resolved by snapping the vocal
// track to the instrumental clock, never the other way around.
//
// All exported methods are safe for concurrent use.
type Controller struct {
	syncTolerance float64
	playSettle    time.Duration
	seekSettle    time.Duration
	mutingEnabled bool
	metrics       *observe.Metrics

	mu     sync.Mutex
	music  Handle // instrumental, timing authority
	song   Handle // full vocal mix
	muted  bool
	settle *time.Timer // pending sync verification, if any
}

// NewController creates a Controller with the supplied options. Call
// [Controller.Attach] before any playback operation.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		syncTolerance: defaultSyncTolerance,
		playSettle:    defaultPlaySettle,
		seekSettle:    defaultSeekSettle,
		mutingEnabled: true,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.Default()
	}
	return c
}

// Attach sets the two media handles: music is the instrumental mix and
// timing authority, song the full vocal mix.
func (c *Controller) Attach(music, song Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.music = music
	c.song = song
	c.muted = false
}

// OnEnded registers fn with both handles; whichever stream ends first
// notifies the session.
func (c *Controller) OnEnded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.music.OnEnded(fn)
	c.song.OnEnded(fn)
}

// Play starts both streams. If the vocal clock has drifted more than the
// pre-sync threshold it is snapped to the instrumental clock first, and
// sync is re-verified once the settle delay has elapsed. The vocal
// stream stays paused while vocal muting is engaged.
//
// A playback refusal is reported wrapping [ErrPlaybackBlocked].
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.music == nil || c.song == nil {
		return fmt.Errorf("audio: play: no handles attached")
	}

	if drift := c.song.CurrentTime() - c.music.CurrentTime(); math.Abs(drift) > preSyncThreshold {
		c.song.SetCurrentTime(c.music.CurrentTime())
		c.metrics.AddSyncCorrection(context.Background(), "play")
		slog.Debug("audio: pre-play vocal snap", "drift", drift)
	}

	if err := c.music.Play(); err != nil {
		return fmt.Errorf("audio: play music: %w", err)
	}
	if !c.muted {
		if err := c.song.Play(); err != nil {
			c.music.Pause()
			return fmt.Errorf("audio: play song: %w", err)
		}
	}

	c.scheduleVerifyLocked(c.playSettle, "play")
	return nil
}

// Pause pauses both streams, preserving their positions.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelSettleLocked()
	if c.music != nil {
		c.music.Pause()
	}
	if c.song != nil {
		c.song.Pause()
	}
}

// Seek pauses both streams and moves them to t (clamped to zero). Sync
// is verified once the seek settle delay has elapsed. Resuming is the
// session controller's decision, not Seek's.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.music == nil || c.song == nil {
		return
	}
	if t < 0 {
		t = 0
	}

	c.cancelSettleLocked()
	c.music.Pause()
	c.song.Pause()
	c.music.SetCurrentTime(t)
	c.song.SetCurrentTime(t)

	c.scheduleVerifyLocked(c.seekSettle, "seek")
}

// SetVocalMuted gates the vocal stream. The transition is edge-triggered
// and idempotent: repeated calls with an unchanged value issue zero
// audio operations. On mute the vocal stream is paused; on unmute it is
// re-synced to the instrumental clock and resumed only when the
// instrumental stream is itself playing.
//
// The whole behaviour is disabled by [WithoutVocalMuting].
func (c *Controller) SetVocalMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mutingEnabled || c.song == nil || muted == c.muted {
		return
	}
	c.muted = muted

	if muted {
		c.song.Pause()
		return
	}

	c.song.SetCurrentTime(c.music.CurrentTime())
	if !c.music.Paused() {
		if err := c.song.Play(); err != nil {
			slog.Warn("audio: vocal resume after unmute failed", "err", err)
		}
	}
}

// VocalMuted reports whether the vocal stream is currently gated.
func (c *Controller) VocalMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// CurrentTime returns the instrumental clock in seconds.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.music == nil {
		return 0
	}
	return c.music.CurrentTime()
}

// Duration returns the instrumental stream's length in seconds.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.music == nil {
		return 0
	}
	return c.music.Duration()
}

// IsPaused reports whether the instrumental stream is paused.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.music == nil {
		return true
	}
	return c.music.Paused()
}

// scheduleVerifyLocked arms a one-shot sync verification after delay,
// replacing any pending one. Must be called with c.mu held.
func (c *Controller) scheduleVerifyLocked(delay time.Duration, cause string) {
	c.cancelSettleLocked()
	c.settle = time.AfterFunc(delay, func() { c.verifySync(cause) })
}

// cancelSettleLocked stops a pending sync verification, if any. Must be
// called with c.mu held.
func (c *Controller) cancelSettleLocked() {
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
}

// verifySync re-checks vocal drift after a settle delay and snaps the
// vocal clock back when it exceeds the tolerance.
func (c *Controller) verifySync(cause string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.music == nil || c.song == nil {
		return
	}

	drift := c.song.CurrentTime() - c.music.CurrentTime()
	if math.Abs(drift) <= c.syncTolerance {
		return
	}

	c.song.SetCurrentTime(c.music.CurrentTime())
	c.metrics.AddSyncCorrection(context.Background(), cause)
	slog.Debug("audio: vocal drift corrected",
		"cause", cause,
		"drift", drift,
	)
}
