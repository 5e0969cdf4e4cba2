package audio_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/singalong/internal/audio"
)

func TestClock_StartsPausedAtZero(t *testing.T) {
	t.Parallel()

	c := audio.NewClock(30)
	if !c.Paused() || c.CurrentTime() != 0 {
		t.Errorf("new clock: paused=%v time=%f, want paused at 0", c.Paused(), c.CurrentTime())
	}
	if c.Duration() != 30 {
		t.Errorf("duration = %f, want 30", c.Duration())
	}
}

func TestClock_AdvancesWhilePlaying(t *testing.T) {
	t.Parallel()

	c := audio.NewClock(30)
	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := c.CurrentTime(); got <= 0 {
		t.Errorf("time after 50ms of play = %f, want > 0", got)
	}

	c.Pause()
	frozen := c.CurrentTime()
	time.Sleep(30 * time.Millisecond)
	if got := c.CurrentTime(); got != frozen {
		t.Errorf("time advanced while paused: %f -> %f", frozen, got)
	}
}

func TestClock_SeekClampsToTrack(t *testing.T) {
	t.Parallel()

	c := audio.NewClock(30)
	c.SetCurrentTime(-5)
	if got := c.CurrentTime(); got != 0 {
		t.Errorf("negative seek = %f, want 0", got)
	}
	c.SetCurrentTime(99)
	if got := c.CurrentTime(); got != 30 {
		t.Errorf("overlong seek = %f, want clamped to 30", got)
	}
}

func TestClock_FiresEndedAtDuration(t *testing.T) {
	t.Parallel()

	c := audio.NewClock(0.05)
	var ended atomic.Int32
	c.OnEnded(func() { ended.Add(1) })

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ended.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("ended callback never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !c.Paused() || c.CurrentTime() != 0.05 {
		t.Errorf("after end: paused=%v time=%f, want paused at the duration", c.Paused(), c.CurrentTime())
	}

	// Playing an ended clock without rewinding is a no-op.
	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !c.Paused() {
		t.Error("play at the end must not restart")
	}
}
