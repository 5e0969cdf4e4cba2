// Package audio owns the two media streams of a karaoke session: the
// instrumental mix ("music", the timing authority) and the full vocal
// mix ("song"). The [Controller] keeps the two handles synchronized and
// gates vocal playback during target-word intervals.
package audio

import "errors"

// ErrPlaybackBlocked is returned when the platform refuses to start
// playback, typically because autoplay gating requires a user gesture
// first. The session stays armed and awaits a user-initiated retry.
var ErrPlaybackBlocked = errors.New("audio: playback blocked")

// Handle is the engine's view of one playable media stream. It mirrors
// the minimal surface of a media element: a seekable clock, play/pause,
// and an ended notification.
//
// Implementations must be safe for concurrent use.
type Handle interface {
	// CurrentTime returns the playback position in seconds.
	CurrentTime() float64

	// SetCurrentTime seeks to t seconds.
	SetCurrentTime(t float64)

	// Duration returns the total media length in seconds.
	Duration() float64

	// Paused reports whether playback is currently paused.
	Paused() bool

	// Play starts playback. A refusal is reported wrapping
	// [ErrPlaybackBlocked].
	Play() error

	// Pause pauses playback, preserving the position.
	Pause()

	// OnEnded registers fn to be invoked when playback reaches the end
	// of the media. Multiple registrations are all invoked.
	OnEnded(fn func())
}
