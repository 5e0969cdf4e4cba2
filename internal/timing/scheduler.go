// Package timing drives the per-frame loop of a karaoke session. A
// [Scheduler] hands out one-shot frame callbacks; the [Ticker] performs
// the frame work: resolving the current sentence and highlighted word,
// feeding the music clock to the scoring engine, gating the vocal track
// over target words and publishing progress.
package timing

import "time"

// defaultFrameInterval approximates a display refresh at ~60 Hz.
const defaultFrameInterval = 16 * time.Millisecond

// Scheduler schedules a single upcoming frame callback. The returned
// cancel function stops the callback from firing; cancelling an already
// fired request is a no-op.
type Scheduler interface {
	Request(fn func()) (cancel func())
}

// FrameScheduler is the production [Scheduler]: each request fires once
// after a fixed frame interval.
type FrameScheduler struct {
	// Interval between a request and its callback. Zero means the
	// ~60 Hz default.
	Interval time.Duration
}

var _ Scheduler = (*FrameScheduler)(nil)

func (s *FrameScheduler) Request(fn func()) (cancel func()) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	t := time.AfterFunc(interval, fn)
	return func() { t.Stop() }
}
