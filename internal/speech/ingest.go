package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/similarity"
)

// Default backoff bounds for transient-error recognizer restarts.
const (
	defaultRestartBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
)

// IngestConfig holds the dependencies of an [Ingest].
type IngestConfig struct {
	// Recognizer is the external speech source. Required.
	Recognizer Recognizer

	// Log receives normalized tokens. Required.
	Log *Log

	// Clock returns the current music-track time in seconds; tokens are
	// stamped with it at append. Required.
	Clock func() float64

	// OnTerminal is invoked once when a terminal recognizer error ends
	// speech recognition for the session. May be nil.
	OnTerminal func(error)

	// RestartBackoff is the initial delay before restarting after a
	// transient error; it doubles per consecutive failed restart up to
	// MaxBackoff and resets once a restart succeeds. Defaults: 500 ms
	// and 2 s.
	RestartBackoff time.Duration
	MaxBackoff     time.Duration

	// Metrics records ingest counters. Defaults to [observe.Default].
	Metrics *observe.Metrics
}

// Ingest pumps recognizer results into the recognition log. Interim
// results are dropped; final transcripts are split on whitespace, each
// piece normalized, and appended with the music clock's current time.
//
// Transient recognizer errors trigger an automatic restart with
// exponential backoff. Terminal errors stop the ingest and are reported
// through OnTerminal.
//
// All exported methods are safe for concurrent use.
type Ingest struct {
	rec        Recognizer
	log        *Log
	clock      func() float64
	onTerminal func(error)
	backoff    time.Duration
	maxBackoff time.Duration
	metrics    *observe.Metrics

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewIngest creates an [Ingest] from cfg. Zero-value backoff fields are
// replaced with the defaults.
func NewIngest(cfg IngestConfig) (*Ingest, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("speech: ingest requires a recognizer")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("speech: ingest requires a log")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("speech: ingest requires a clock")
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = defaultRestartBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Default()
	}
	return &Ingest{
		rec:        cfg.Recognizer,
		log:        cfg.Log,
		clock:      cfg.Clock,
		onTerminal: cfg.OnTerminal,
		backoff:    cfg.RestartBackoff,
		maxBackoff: cfg.MaxBackoff,
		metrics:    cfg.Metrics,
	}, nil
}

// Start starts the recognizer and the background pump. Starting a
// running ingest is a no-op. A start failure wrapping
// [ErrPermissionDenied] or [ErrUnavailable] is returned to the caller;
// the ingest stays stopped.
func (in *Ingest) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.running {
		return nil
	}

	if err := in.rec.Start(ctx); err != nil {
		return fmt.Errorf("speech: start recognizer: %w", err)
	}

	in.running = true
	in.done = make(chan struct{})
	in.wg.Add(1)
	go in.pump(ctx, in.done)
	return nil
}

// Stop stops the recognizer and the background pump, waiting for the
// pump to exit. Stopping a stopped ingest is a no-op. The recognition
// log is left untouched; only a session reset clears it.
func (in *Ingest) Stop() {
	in.mu.Lock()
	if !in.running {
		in.mu.Unlock()
		return
	}
	in.running = false
	close(in.done)
	in.mu.Unlock()

	_ = in.rec.Stop()
	in.wg.Wait()
}

// pump consumes recognizer results and errors until stopped.
func (in *Ingest) pump(ctx context.Context, done chan struct{}) {
	defer in.wg.Done()

	backoff := in.backoff
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case res, ok := <-in.rec.Results():
			if !ok {
				return
			}
			in.ingest(res)
		case err, ok := <-in.rec.Errors():
			if !ok {
				return
			}
			if Terminal(err) {
				slog.Warn("speech: terminal recognizer error", "err", err)
				_ = in.rec.Stop()
				in.mu.Lock()
				in.running = false
				in.mu.Unlock()
				if in.onTerminal != nil {
					in.onTerminal(err)
				}
				return
			}
			recovered, again := in.restartAfter(ctx, done, err, backoff)
			if !again {
				return
			}
			// The ramp only resets once a restart actually succeeds;
			// transcripts trickling out of a failing recognizer do not.
			if recovered {
				backoff = in.backoff
			} else if backoff *= 2; backoff > in.maxBackoff {
				backoff = in.maxBackoff
			}
		}
	}
}

// ingest appends the normalized pieces of a final result to the log and
// returns how many tokens were accepted.
func (in *Ingest) ingest(res Result) int {
	if !res.Final {
		return 0
	}

	now := in.clock()
	accepted := 0
	for _, piece := range strings.Fields(res.Transcript) {
		text := similarity.NormalizeToken(piece)
		if text == "" {
			continue
		}
		in.log.Append(Token{Text: text, Time: now, Confidence: res.Confidence})
		accepted++
	}
	if accepted > 0 {
		in.metrics.AddTokens(context.Background(), int64(accepted))
		slog.Debug("speech: tokens ingested",
			"count", accepted,
			"music_time", now,
		)
	}
	return accepted
}

// restartAfter waits out the backoff and restarts the recognizer after a
// transient error. recovered reports whether the restart succeeded;
// again is false when the ingest was stopped while waiting or the
// restart itself failed terminally.
func (in *Ingest) restartAfter(ctx context.Context, done chan struct{}, cause error, wait time.Duration) (recovered, again bool) {
	slog.Debug("speech: transient recognizer error — restarting",
		"err", cause,
		"backoff", wait,
	)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
		return false, false
	case <-ctx.Done():
		return false, false
	case <-timer.C:
	}

	_ = in.rec.Stop()
	if err := in.rec.Start(ctx); err != nil {
		slog.Warn("speech: recognizer restart failed", "err", err)
		if Terminal(err) {
			in.mu.Lock()
			in.running = false
			in.mu.Unlock()
			if in.onTerminal != nil {
				in.onTerminal(err)
			}
			return false, false
		}
		// Keep pumping; the next error event re-enters the backoff path.
		return false, true
	}

	in.metrics.AddRecognizerRestart(context.Background())
	return true, true
}
