package speech

import "errors"

// Sentinel error kinds reported by recognizers. [ErrPermissionDenied] is
// terminal for the session; the remaining kinds are transient and
// recovered by the ingest's backoff restart.
var (
	// ErrPermissionDenied means the user refused microphone access.
	ErrPermissionDenied = errors.New("speech: microphone permission denied")

	// ErrUnavailable means no recognizer backend could be started.
	ErrUnavailable = errors.New("speech: recognition unavailable")

	// ErrNoSpeech means the recognizer timed out waiting for audio input.
	ErrNoSpeech = errors.New("speech: no speech detected")

	// ErrNetwork means the recognizer lost its backend connection.
	ErrNetwork = errors.New("speech: network error")

	// ErrAudioCapture means the audio capture device failed.
	ErrAudioCapture = errors.New("speech: audio capture failed")
)

// Terminal reports whether err ends speech recognition for the session.
func Terminal(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
