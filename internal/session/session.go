// Package session owns the lifecycle of one karaoke play-through. It
// coordinates the audio transport, the frame loop, the speech listener
// and the scoring engine through a small state machine:
//
//	armed ──Start──▶ playing ◀─Start/Pause─▶ paused
//	                    │
//	                 (ended)
//	                    ▼
//	                completed ──Reset──▶ armed
//
// A session is armed as soon as it is constructed; a blocked playback
// start leaves it armed and awaiting another user gesture. Reset returns
// any state to armed with all scores and captured speech discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/singalong/internal/speech"
	"github.com/MrWong99/singalong/internal/view"
)

// State is the lifecycle state of a [Session].
type State string

const (
	// StateArmed means the session is ready and waiting for Start.
	StateArmed State = "armed"

	// StatePlaying means audio, frame loop and listener are running.
	StatePlaying State = "playing"

	// StatePaused means playback is suspended with positions preserved.
	StatePaused State = "paused"

	// StateCompleted means the song ended and scores were ratified.
	// Only Reset leaves this state.
	StateCompleted State = "completed"
)

// defaultFadeDelay is how long the final display stays before the lyric
// fade-out.
const defaultFadeDelay = 5 * time.Second

// Transport is the session's view of the audio layer.
type Transport interface {
	Play() error
	Pause()
	Seek(t float64)
	CurrentTime() float64
	Duration() float64
	OnEnded(fn func())
}

// FrameLoop drives per-frame rendering and scoring observation.
type FrameLoop interface {
	Start()
	Stop()
	Tick()
}

// Scorer is the session's view of the scoring engine.
type Scorer interface {
	Ratify()
	Reset()
}

// Listener is the speech capture pipeline, started and stopped with
// playback so the microphone is only open while the song runs.
type Listener interface {
	Start(ctx context.Context) error
	Stop()
}

// Config holds the collaborators of a [Session]. Transport, Frames and
// Scorer are required.
type Config struct {
	Transport Transport
	Frames    FrameLoop
	Scorer    Scorer

	// Listener is optional; without one the session runs display-only.
	Listener Listener

	// Log is the recognition log to clear on Reset. Optional.
	Log *speech.Log

	// View receives the lyric fade around completion. Defaults to
	// [view.NopSink].
	View view.Sink

	// FadeDelay is how long the final display lingers before fading.
	// Default: 5s.
	FadeDelay time.Duration
}

// Session is the lifecycle controller for one play-through.
// All exported methods are safe for concurrent use.
type Session struct {
	transport Transport
	frames    FrameLoop
	scorer    Scorer
	listener  Listener
	log       *speech.Log
	sink      view.Sink
	fadeDelay time.Duration

	mu    sync.Mutex
	state State
	fade  *time.Timer
}

// New creates an armed Session and registers for the transport's ended
// notification.
func New(cfg Config) (*Session, error) {
	var errs []error
	if cfg.Transport == nil {
		errs = append(errs, errors.New("session: Transport is required"))
	}
	if cfg.Frames == nil {
		errs = append(errs, errors.New("session: Frames is required"))
	}
	if cfg.Scorer == nil {
		errs = append(errs, errors.New("session: Scorer is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.View == nil {
		cfg.View = view.NopSink{}
	}
	if cfg.FadeDelay <= 0 {
		cfg.FadeDelay = defaultFadeDelay
	}

	s := &Session{
		transport: cfg.Transport,
		frames:    cfg.Frames,
		scorer:    cfg.Scorer,
		listener:  cfg.Listener,
		log:       cfg.Log,
		sink:      cfg.View,
		fadeDelay: cfg.FadeDelay,
		state:     StateArmed,
	}
	s.transport.OnEnded(s.onEnded)
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins or resumes playback. A blocked audio start leaves the
// state untouched so the next user gesture can retry; the error wraps
// the transport's refusal. A completed session must be Reset first.
//
// A listener failure is not fatal: the song plays on without speech
// input and every target word simply scores unmatched.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePlaying:
		return nil
	case StateCompleted:
		return fmt.Errorf("session: cannot start a completed session, reset first")
	}

	if err := s.transport.Play(); err != nil {
		return fmt.Errorf("session: start playback: %w", err)
	}

	if s.listener != nil {
		if err := s.listener.Start(ctx); err != nil {
			slog.Warn("session: speech capture unavailable, continuing without scoring input", "err", err)
		}
	}

	s.cancelFadeLocked()
	s.frames.Start()
	s.state = StatePlaying
	slog.Info("session: playing", "position", s.transport.CurrentTime())
	return nil
}

// Pause suspends playback, the frame loop and speech capture. Positions
// and all score state are preserved.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}

	s.frames.Stop()
	s.transport.Pause()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.state = StatePaused
	slog.Info("session: paused", "position", s.transport.CurrentTime())
}

// SeekTo moves playback to t seconds, clamped to the track. Seeking
// while playing resumes from the new position; seeking while paused or
// armed refreshes the display and stays put. Score state is never
// touched — windows skipped over are settled by ratification at the end
// of the song. A completed session ignores seeks.
func (s *Session) SeekTo(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCompleted {
		return
	}

	if t < 0 {
		t = 0
	}
	if dur := s.transport.Duration(); dur > 0 && t > dur {
		t = dur
	}

	wasPlaying := s.state == StatePlaying
	s.transport.Seek(t)
	if wasPlaying {
		if err := s.transport.Play(); err != nil {
			slog.Warn("session: resume after seek failed", "err", err)
			s.frames.Stop()
			s.state = StatePaused
			return
		}
	} else {
		s.frames.Tick()
	}
	slog.Debug("session: seek", "position", t, "playing", wasPlaying)
}

// SeekBy moves playback by delta seconds relative to the current
// position.
func (s *Session) SeekBy(delta float64) {
	s.SeekTo(s.transport.CurrentTime() + delta)
}

// Reset returns the session to armed from any state: playback rewinds
// to zero, the recognition log and every target verdict are cleared and
// the lyric display fades back in.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelFadeLocked()
	s.frames.Stop()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.transport.Pause()
	s.transport.Seek(0)

	s.scorer.Reset()
	if s.log != nil {
		s.log.Reset()
	}

	s.sink.FadeLyrics(true)
	s.state = StateArmed
	s.frames.Tick()
	slog.Info("session: reset")
}

// onEnded finalizes the play-through when either stream reaches its
// end: scores are ratified and the lyric display fades out after the
// linger delay.
func (s *Session) onEnded() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.frames.Stop()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.transport.Pause()
	s.state = StateCompleted
	s.mu.Unlock()

	s.scorer.Ratify()

	// One last frame renders the completed phase now that the loop is
	// stopped and the clock rests at the end of the track.
	s.frames.Tick()

	s.mu.Lock()
	if s.state == StateCompleted {
		s.fade = time.AfterFunc(s.fadeDelay, func() { s.sink.FadeLyrics(false) })
	}
	s.mu.Unlock()

	slog.Info("session: completed")
}

// cancelFadeLocked stops a pending fade-out. Must be called with s.mu
// held.
func (s *Session) cancelFadeLocked() {
	if s.fade != nil {
		s.fade.Stop()
		s.fade = nil
	}
}
