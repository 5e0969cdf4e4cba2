// Package whisper implements [speech.Recognizer] on top of the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
//
// Audio reaches the recognizer through a [SampleSource] — typically a
// microphone capture wrapper delivering mono float32 PCM. Speech is
// buffered until a silence gap (or the buffer cap) triggers inference;
// each inference result is emitted as one final [speech.Result].
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/singalong/internal/speech"
)

// Compile-time assertion that Recognizer satisfies speech.Recognizer.
var _ speech.Recognizer = (*Recognizer)(nil)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// defaultRMSThreshold separates speech from silence on normalized
	// float32 samples.
	defaultRMSThreshold = 0.01

	// defaultSilenceMs is the consecutive-silence duration that flushes
	// the buffered speech to inference.
	defaultSilenceMs = 500

	// defaultMaxBufferMs bounds the buffered speech before a forced flush.
	defaultMaxBufferMs = 10000
)

// SampleSource delivers mono float32 PCM frames from the capture device.
// Read blocks until a frame is available; it returns [io.EOF] when the
// device is closed and other errors for capture failures.
type SampleSource interface {
	Read(ctx context.Context) ([]float32, error)
	Close() error
}

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithSampleRate sets the sample rate of frames delivered by the source
// in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) that
// triggers a flush of buffered speech to inference. Defaults to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(r *Recognizer) { r.silenceMs = ms }
}

// Recognizer runs whisper.cpp inference over silence-delimited chunks of
// captured audio and emits each transcription as a final result.
//
// All exported methods are safe for concurrent use.
type Recognizer struct {
	model  whisperlib.Model
	source SampleSource

	language    string
	sampleRate  int
	silenceMs   int
	maxBufferMs int

	results chan speech.Result
	errs    chan error

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Recognizer that loads the whisper.cpp model from
// modelPath and reads captured audio from source. The model is loaded
// once; call [Recognizer.Close] to release it.
func New(modelPath string, source SampleSource, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper: %w: model path must not be empty", speech.ErrUnavailable)
	}
	if source == nil {
		return nil, fmt.Errorf("whisper: %w: sample source must not be nil", speech.ErrUnavailable)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w: load model %q: %v", speech.ErrUnavailable, modelPath, err)
	}

	r := &Recognizer{
		model:       model,
		source:      source,
		language:    defaultLanguage,
		sampleRate:  defaultSampleRate,
		silenceMs:   defaultSilenceMs,
		maxBufferMs: defaultMaxBufferMs,
		results:     make(chan speech.Result, 16),
		errs:        make(chan error, 4),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Start begins capturing and transcribing. Starting a running recognizer
// is a no-op.
func (r *Recognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.captureLoop(runCtx)
	return nil
}

// Stop stops capturing. Buffered speech is flushed before the loop
// exits. Stopping a stopped recognizer is a no-op.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	return nil
}

// Results returns the channel final transcriptions are delivered on.
func (r *Recognizer) Results() <-chan speech.Result { return r.results }

// Errors returns the channel capture and inference errors are delivered on.
func (r *Recognizer) Errors() <-chan error { return r.errs }

// Close releases the whisper model and the sample source. The recognizer
// must not be started again afterwards.
func (r *Recognizer) Close() error {
	_ = r.Stop()
	var errs []error
	if err := r.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.model != nil {
		if err := r.model.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// captureLoop buffers speech frames between silences and dispatches each
// completed utterance to inference.
func (r *Recognizer) captureLoop(ctx context.Context) {
	defer r.wg.Done()

	var (
		buffer    []float32
		hadSpeech bool
		silence   int // accumulated silence in ms
	)

	flush := func() {
		if !hadSpeech || len(buffer) == 0 {
			buffer = buffer[:0]
			hadSpeech = false
			silence = 0
			return
		}
		utterance := make([]float32, len(buffer))
		copy(utterance, buffer)
		buffer = buffer[:0]
		hadSpeech = false
		silence = 0

		text, err := r.infer(utterance)
		if err != nil {
			r.reportErr(err)
			return
		}
		if text == "" {
			return
		}
		select {
		case r.results <- speech.Result{Transcript: text, Final: true, Confidence: 1}:
		default:
			slog.Warn("whisper: results channel full — dropping transcript")
		}
	}

	for {
		frame, err := r.source.Read(ctx)
		if ctx.Err() != nil {
			flush()
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				flush()
				return
			}
			r.reportErr(fmt.Errorf("whisper: %w: %v", speech.ErrAudioCapture, err))
			continue
		}

		frameMs := len(frame) * 1000 / r.sampleRate
		if rms(frame) < defaultRMSThreshold {
			if hadSpeech {
				silence += frameMs
				buffer = append(buffer, frame...)
				if silence >= r.silenceMs {
					flush()
				}
			}
			continue
		}

		hadSpeech = true
		silence = 0
		buffer = append(buffer, frame...)
		if len(buffer)*1000/r.sampleRate >= r.maxBufferMs {
			flush()
		}
	}
}

// infer runs whisper.cpp over one utterance using a fresh context. A
// context is not thread-safe, but the shared model is.
func (r *Recognizer) infer(samples []float32) (string, error) {
	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(r.language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", r.language, "err", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// reportErr delivers err without blocking the capture loop.
func (r *Recognizer) reportErr(err error) {
	select {
	case r.errs <- err:
	default:
		slog.Warn("whisper: errors channel full", "err", err)
	}
}

// rms computes the root mean square of normalized samples.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
