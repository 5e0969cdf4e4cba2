package timing

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/MrWong99/singalong/internal/lyrics"
	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/view"
)

// Transport is the ticker's view of the audio layer: the authoritative
// music clock plus the vocal gate.
type Transport interface {
	CurrentTime() float64
	Duration() float64
	SetVocalMuted(muted bool)
}

// Scorer receives the music clock once per frame to arm and close
// listening windows.
type Scorer interface {
	Observe(musicTime float64)
}

// Config holds the dependencies of a [Ticker]. Model, Transport and
// Scorer are required.
type Config struct {
	Model     *lyrics.Model
	Transport Transport
	Scorer    Scorer

	// View receives render updates. Defaults to [view.NopSink].
	View view.Sink

	// Scheduler provides frame callbacks. Defaults to a ~60 Hz
	// [FrameScheduler].
	Scheduler Scheduler

	// Metrics records tick durations. Defaults to [observe.Default].
	Metrics *observe.Metrics
}

// Ticker runs the frame loop. Every frame reads the music clock exactly
// once and derives everything from that single timestamp: sentence,
// highlighted word, phase, scoring windows, vocal gating and progress.
//
// Render output is edge-triggered: an unchanged frame issues no view
// updates except the progress fraction.
//
// All exported methods are safe for concurrent use.
type Ticker struct {
	model     *lyrics.Model
	transport Transport
	scorer    Scorer
	sink      view.Sink
	sched     Scheduler
	metrics   *observe.Metrics

	mu            sync.Mutex
	running       bool
	cancel        func()
	lastSentence  int
	lastWord      int
	lastPhase     view.Phase
	lastCountdown int
	lastImage     int
}

// NewTicker creates a Ticker from cfg.
func NewTicker(cfg Config) (*Ticker, error) {
	var errs []error
	if cfg.Model == nil {
		errs = append(errs, errors.New("timing: Model is required"))
	}
	if cfg.Transport == nil {
		errs = append(errs, errors.New("timing: Transport is required"))
	}
	if cfg.Scorer == nil {
		errs = append(errs, errors.New("timing: Scorer is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.View == nil {
		cfg.View = view.NopSink{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = &FrameScheduler{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Default()
	}

	t := &Ticker{
		model:     cfg.Model,
		transport: cfg.Transport,
		scorer:    cfg.Scorer,
		sink:      cfg.View,
		sched:     cfg.Scheduler,
		metrics:   cfg.Metrics,
	}
	t.resetRenderStateLocked()
	return t, nil
}

// Start begins requesting frames. Calling Start on a running ticker is
// a no-op. The render state is reset so the first frame re-emits the
// full display.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.resetRenderStateLocked()
	t.cancel = t.sched.Request(t.frame)
}

// Stop cancels the pending frame. A frame already executing finishes
// but does not reschedule.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Running reports whether the frame loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Tick performs a single frame immediately without scheduling another.
// The session uses it to refresh the display after a seek while paused.
func (t *Ticker) Tick() {
	start := time.Now()
	defer func() {
		t.metrics.RecordTick(context.Background(), time.Since(start).Seconds())
	}()

	now := t.transport.CurrentTime()

	t.mu.Lock()
	sentence, word, phase, countdown := t.resolveFrameLocked(now)
	t.renderLocked(sentence, word, phase, countdown)
	t.mu.Unlock()

	t.scorer.Observe(now)

	muted := false
	if sentence >= 0 && word >= 0 {
		muted = t.model.Sentence(sentence).Words[word].Target
	}
	t.transport.SetVocalMuted(muted)

	if dur := t.transport.Duration(); dur > 0 {
		t.sink.UpdateProgress(math.Min(now/dur, 1))
	}
}

// frame is the scheduled callback: one tick, then the next request.
func (t *Ticker) frame() {
	t.Tick()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.cancel = t.sched.Request(t.frame)
	}
}

// resolveFrameLocked maps the music time to the display state for this
// frame. Must be called with t.mu held.
func (t *Ticker) resolveFrameLocked(now float64) (sentence, word int, phase view.Phase, countdown float64) {
	sentence, _ = t.model.SentenceAt(now)
	word = view.NoWord
	last := t.model.SentenceCount() - 1

	switch {
	case now >= t.model.TotalEnd():
		phase = view.PhaseCompleted
		sentence = last
	case now < t.model.Offset():
		phase = view.PhaseIntro
		countdown = t.model.Offset() - now
	case sentence == -1 && now >= t.model.LastSentenceEnd():
		// Trailing instrumental: the last line stays on screen.
		phase = view.PhaseOutro
		sentence = last
	default:
		phase = view.PhaseActive
		if sentence == -1 && t.lastSentence >= 0 {
			// Gap between sentences: keep the previous line on screen.
			sentence = t.lastSentence
		}
		if sentence >= 0 {
			word = t.model.HighlightedWord(sentence, now)
		}
	}
	return sentence, word, phase, countdown
}

// renderLocked emits sentence and image updates when the frame state
// changed. During the intro, a change of the whole-second countdown also
// triggers a render. Must be called with t.mu held.
func (t *Ticker) renderLocked(sentence, word int, phase view.Phase, countdown float64) {
	cd := int(math.Ceil(countdown))
	changed := sentence != t.lastSentence ||
		word != t.lastWord ||
		phase != t.lastPhase ||
		(phase == view.PhaseIntro && cd != t.lastCountdown)
	if !changed {
		return
	}

	t.sink.RenderSentence(sentence, word, phase, countdown)
	t.lastSentence = sentence
	t.lastWord = word
	t.lastPhase = phase
	t.lastCountdown = cd

	if sentence >= 0 && sentence != t.lastImage {
		t.sink.SetImage(sentence)
		t.lastImage = sentence
	}
}

// resetRenderStateLocked forces the next frame to emit a full render.
// Must be called with t.mu held.
func (t *Ticker) resetRenderStateLocked() {
	t.lastSentence = -2
	t.lastWord = -2
	t.lastPhase = view.Phase("")
	t.lastCountdown = -1
	t.lastImage = -1
}
