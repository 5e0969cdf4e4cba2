// Package scoring decides whether each target word was actually sung.
//
// During play, every target owns a listening window derived from its
// word timing. When the music clock exits a window the engine captures
// the most recent recognition-log tokens, scores them against the target
// text with the Jaro and trigram metrics, and records a match verdict.
// At end of song a ratification pass rescopes each target's evidence to
// the log entries nearest its true word interval and recomputes the
// official verdicts.
package scoring

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/singalong/internal/lyrics"
	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/similarity"
	"github.com/MrWong99/singalong/internal/speech"
	"github.com/MrWong99/singalong/internal/view"
)

// Reference scoring policy.
const (
	defaultCaptureK         = 15
	defaultJaroThreshold    = 0.8
	defaultTrigramThreshold = 0.4

	// phoneticJWThreshold confirms a Double Metaphone candidate with a
	// Jaro-Winkler check when the phonetic assist is enabled.
	phoneticJWThreshold = 0.7
)

// Config holds the dependencies and policy of an [Engine].
type Config struct {
	// Targets is the registry built by the lyric model. The engine owns
	// all mutable per-target state from here on.
	Targets []lyrics.TargetWord

	// Log is the recognition log, read at window close and ratification.
	Log *speech.Log

	// View receives row and counter updates. Defaults to [view.NopSink].
	View view.Sink

	// CaptureK is the number of recognition tokens retained per window.
	// Default: 15.
	CaptureK int

	// JaroThreshold and TrigramThreshold are the match thresholds.
	// Defaults: 0.8 and 0.4.
	JaroThreshold    float64
	TrigramThreshold float64

	// PhoneticAssist additionally accepts tokens that phonetically align
	// with the target (Double Metaphone overlap confirmed by
	// Jaro-Winkler). Children slur consonants; the assist recovers
	// near-misses the two string metrics reject. Off by default.
	PhoneticAssist bool

	// Metrics records scoring counters. Defaults to [observe.Default].
	Metrics *observe.Metrics
}

// TargetState is the scoring engine's view of one target word: the
// immutable registry entry plus the mutable capture and verdict.
type TargetState struct {
	lyrics.TargetWord

	// Captured holds the tokens scored for this target; one Jaro and one
	// trigram score per token.
	Captured      []speech.Token
	JaroScores    []float64
	TrigramScores []float64

	// Matched is the current verdict.
	Matched bool

	// Listening reports whether the window is currently armed.
	Listening bool

	// Closed reports whether the window was closed during live play.
	Closed bool
}

// Engine owns the target-word registry state. [Engine.Observe] is called
// once per animation tick with the current music time; [Engine.Ratify]
// runs at session completion.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	log              *speech.Log
	sink             view.Sink
	captureK         int
	jaroThreshold    float64
	trigramThreshold float64
	phoneticAssist   bool
	metrics          *observe.Metrics

	mu      sync.Mutex
	targets []TargetState
}

// New creates an [Engine] from cfg. Zero-value policy fields are
// replaced with the reference defaults.
func New(cfg Config) *Engine {
	if cfg.CaptureK <= 0 {
		cfg.CaptureK = defaultCaptureK
	}
	if cfg.JaroThreshold <= 0 {
		cfg.JaroThreshold = defaultJaroThreshold
	}
	if cfg.TrigramThreshold <= 0 {
		cfg.TrigramThreshold = defaultTrigramThreshold
	}
	if cfg.View == nil {
		cfg.View = view.NopSink{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Default()
	}

	targets := make([]TargetState, len(cfg.Targets))
	for i, tw := range cfg.Targets {
		targets[i] = TargetState{TargetWord: tw}
	}

	return &Engine{
		log:              cfg.Log,
		sink:             cfg.View,
		captureK:         cfg.CaptureK,
		jaroThreshold:    cfg.JaroThreshold,
		trigramThreshold: cfg.TrigramThreshold,
		phoneticAssist:   cfg.PhoneticAssist,
		metrics:          cfg.Metrics,
	}
}

// Observe arms and closes listening windows for the given music time.
// A window arms when the clock first enters it and closes when the
// clock first exits past its end while armed. Windows the clock skips
// entirely (a forward seek) are left for ratification.
func (e *Engine) Observe(musicTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.targets {
		t := &e.targets[i]
		switch {
		case !t.Closed && !t.Listening &&
			musicTime >= t.WindowStart && musicTime <= t.WindowEnd:
			t.Listening = true
			e.sink.HighlightTargetRow(t.ID, true)
			slog.Debug("scoring: window armed",
				"target", t.Text,
				"window_start", t.WindowStart,
				"window_end", t.WindowEnd,
			)

		case t.Listening && musicTime > t.WindowEnd:
			e.closeWindowLocked(t)
		}
	}
}

// closeWindowLocked captures and scores the trailing K tokens for t.
// Must be called with e.mu held.
func (e *Engine) closeWindowLocked(t *TargetState) {
	t.Listening = false
	t.Closed = true

	t.Captured = e.log.LastN(e.captureK)
	t.JaroScores, t.TrigramScores, t.Matched = e.score(t.Text, t.Captured)

	e.sink.HighlightTargetRow(t.ID, false)
	e.pushRowLocked(t)
	e.pushCounterLocked()
	e.metrics.AddWindowClosed(context.Background(), t.Matched)

	slog.Debug("scoring: window closed",
		"target", t.Text,
		"captured", len(t.Captured),
		"matched", t.Matched,
	)
}

// Ratify replaces every target's captured evidence with the K log
// entries nearest the midpoint of its true word interval and recomputes
// the verdicts. Targets whose windows never armed or closed empty during
// live play get their only real scoring chance here.
func (e *Engine) Ratify() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.targets {
		t := &e.targets[i]
		if t.Listening {
			t.Listening = false
			e.sink.HighlightTargetRow(t.ID, false)
		}
		t.Closed = true

		mid := (t.WordStart + t.WordEnd) / 2
		t.Captured = e.log.NearestTo(mid, e.captureK)
		t.JaroScores, t.TrigramScores, t.Matched = e.score(t.Text, t.Captured)
		e.pushRowLocked(t)
	}

	e.pushCounterLocked()
	e.metrics.AddRatification(context.Background())

	matched, total := e.matchedCountLocked()
	slog.Info("scoring: ratified", "matched", matched, "total", total)
}

// Reset clears all captured data and verdicts, returning every target
// to its post-construction state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.targets {
		t := &e.targets[i]
		if t.Listening {
			e.sink.HighlightTargetRow(t.ID, false)
		}
		e.targets[i] = TargetState{TargetWord: t.TargetWord}
		e.pushRowLocked(&e.targets[i])
	}
	e.pushCounterLocked()
}

// MatchedCount returns the current verdict tally.
func (e *Engine) MatchedCount() (matched, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchedCountLocked()
}

// Targets returns a copy of the current per-target state.
func (e *Engine) Targets() []TargetState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]TargetState, len(e.targets))
	copy(out, e.targets)
	return out
}

// score computes per-token Jaro and trigram scores against target and
// derives the match verdict.
func (e *Engine) score(target string, tokens []speech.Token) (jaro, trigram []float64, matched bool) {
	normTarget := similarity.NormalizeToken(target)

	jaro = make([]float64, len(tokens))
	trigram = make([]float64, len(tokens))
	for i, tok := range tokens {
		jaro[i] = similarity.Jaro(normTarget, tok.Text)
		trigram[i] = similarity.TrigramSim(normTarget, tok.Text)
		if jaro[i] > e.jaroThreshold || trigram[i] > e.trigramThreshold {
			matched = true
		}
	}

	if !matched && e.phoneticAssist {
		matched = phoneticMatch(normTarget, tokens)
	}
	return jaro, trigram, matched
}

// phoneticMatch accepts a token whose Double Metaphone codes overlap the
// target's and whose Jaro-Winkler similarity confirms the alignment.
func phoneticMatch(target string, tokens []speech.Token) bool {
	tp, ts := matchr.DoubleMetaphone(target)
	if tp == "" && ts == "" {
		return false
	}
	for _, tok := range tokens {
		p, s := matchr.DoubleMetaphone(tok.Text)
		overlap := (p != "" && (p == tp || p == ts)) ||
			(s != "" && (s == tp || s == ts))
		if !overlap {
			continue
		}
		if matchr.JaroWinkler(strings.ToLower(target), tok.Text, false) >= phoneticJWThreshold {
			return true
		}
	}
	return false
}

// pushRowLocked emits the target's current row state to the view.
// Must be called with e.mu held.
func (e *Engine) pushRowLocked(t *TargetState) {
	tokens := make([]string, len(t.Captured))
	for i, tok := range t.Captured {
		tokens[i] = tok.Text
	}
	e.sink.UpdateTargetRow(t.ID, tokens, t.JaroScores, t.TrigramScores, t.Matched)
}

// pushCounterLocked emits the matched/total tally. Must be called with
// e.mu held.
func (e *Engine) pushCounterLocked() {
	matched, total := e.matchedCountLocked()
	e.sink.UpdateMatchCounter(matched, total)
}

func (e *Engine) matchedCountLocked() (matched, total int) {
	for i := range e.targets {
		if e.targets[i].Matched {
			matched++
		}
	}
	return matched, len(e.targets)
}
