package speech_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/singalong/internal/speech"
	"github.com/MrWong99/singalong/internal/speech/mock"
)

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newIngest(t *testing.T, rec *mock.Recognizer, log *speech.Log, clock func() float64, onTerminal func(error)) *speech.Ingest {
	t.Helper()
	in, err := speech.NewIngest(speech.IngestConfig{
		Recognizer:     rec,
		Log:            log,
		Clock:          clock,
		OnTerminal:     onTerminal,
		RestartBackoff: 10 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	return in
}

func TestIngest_FinalsAreNormalizedAndTimestamped(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()
	var now atomic.Value
	now.Store(7.3)

	in := newIngest(t, rec, log, func() float64 { return now.Load().(float64) }, nil)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	rec.EmitInterim("rib") // dropped
	rec.EmitFinal("Ribbit!  ...", 0.92)

	waitFor(t, "token in log", func() bool { return log.Len() == 1 })

	tok := log.Snapshot()[0]
	if tok.Text != "ribbit" {
		t.Errorf("token text = %q, want ribbit", tok.Text)
	}
	if tok.Time != 7.3 {
		t.Errorf("token time = %f, want 7.3", tok.Time)
	}
	if tok.Confidence != 0.92 {
		t.Errorf("token confidence = %f, want 0.92", tok.Confidence)
	}
}

func TestIngest_MultiWordFinalSplits(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()

	in := newIngest(t, rec, log, func() float64 { return 12.0 }, nil)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	rec.EmitFinal("Twinkle, twinkle LITTLE star", 0.8)

	waitFor(t, "four tokens", func() bool { return log.Len() == 4 })

	got := texts(log.Snapshot())
	if !equalTexts(got, "twinkle", "twinkle", "little", "star") {
		t.Errorf("log = %v", got)
	}
}

func TestIngest_TransientErrorRestartsRecognizer(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()

	in := newIngest(t, rec, log, func() float64 { return 0 }, nil)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	rec.EmitError(speech.ErrNoSpeech)

	waitFor(t, "recognizer restart", func() bool { return rec.StartCalls() >= 2 })
	if !rec.Started() {
		t.Error("recognizer not running after transient-error restart")
	}

	// The pipeline still works after the restart.
	rec.EmitFinal("frog", 1)
	waitFor(t, "token after restart", func() bool { return log.Len() == 1 })
}

func TestIngest_TokensDoNotResetRestartBackoff(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()

	in, err := speech.NewIngest(speech.IngestConfig{
		Recognizer:     rec,
		Log:            log,
		Clock:          func() float64 { return 0 },
		RestartBackoff: 25 * time.Millisecond,
		MaxBackoff:     time.Second,
	})
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer in.Stop()

	// Every restart fails, so the delays must ramp 25 → 50 → 100 ms.
	rec.FailNextStart(speech.ErrNoSpeech)
	rec.FailNextStart(speech.ErrNoSpeech)
	rec.FailNextStart(speech.ErrNoSpeech)

	begin := time.Now()
	rec.EmitError(speech.ErrNoSpeech)
	waitFor(t, "first restart attempt", func() bool { return rec.StartCalls() == 2 })

	// A transcript arriving mid-ramp must not shorten the later delays.
	rec.EmitFinal("frog", 1)
	waitFor(t, "token ingested", func() bool { return log.Len() == 1 })

	rec.EmitError(speech.ErrNoSpeech)
	waitFor(t, "second restart attempt", func() bool { return rec.StartCalls() == 3 })
	rec.EmitError(speech.ErrNoSpeech)
	waitFor(t, "third restart attempt", func() bool { return rec.StartCalls() == 4 })

	if elapsed := time.Since(begin); elapsed < 150*time.Millisecond {
		t.Errorf("three failed restarts took %v, want at least the summed 25+50+100 ms ramp", elapsed)
	}
}

func TestIngest_PermissionDeniedIsTerminal(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()

	var terminal atomic.Value
	in := newIngest(t, rec, log, func() float64 { return 0 }, func(err error) {
		terminal.Store(err)
	})
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec.EmitError(speech.ErrPermissionDenied)

	waitFor(t, "terminal callback", func() bool { return terminal.Load() != nil })
	if err := terminal.Load().(error); !errors.Is(err, speech.ErrPermissionDenied) {
		t.Errorf("terminal err = %v, want ErrPermissionDenied", err)
	}
	if rec.Started() {
		t.Error("recognizer still running after terminal error")
	}
}

func TestIngest_StartFailureSurfaces(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	rec.FailNextStart(speech.ErrUnavailable)
	log := speech.NewLog()

	in := newIngest(t, rec, log, func() float64 { return 0 }, nil)
	err := in.Start(context.Background())
	if !errors.Is(err, speech.ErrUnavailable) {
		t.Fatalf("Start err = %v, want ErrUnavailable", err)
	}
}

func TestIngest_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := mock.NewRecognizer()
	log := speech.NewLog()

	in := newIngest(t, rec, log, func() float64 { return 0 }, nil)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	in.Stop()
	in.Stop()

	if rec.Started() {
		t.Error("recognizer still running after Stop")
	}

	// Restartable after Stop, matching the pause/resume policy.
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	in.Stop()
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	if !speech.Terminal(speech.ErrPermissionDenied) {
		t.Error("ErrPermissionDenied should be terminal")
	}
	for _, err := range []error{speech.ErrNoSpeech, speech.ErrNetwork, speech.ErrAudioCapture, errors.New("other")} {
		if speech.Terminal(err) {
			t.Errorf("%v should not be terminal", err)
		}
	}
}
