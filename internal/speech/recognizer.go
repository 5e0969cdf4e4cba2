// Package speech receives recognition results from an external speech
// recognizer, normalizes them, and maintains the timestamped recognition
// log the scoring engine reads from.
//
// The package does not decide matches. Its single responsibility is to
// keep an accurate append-only record of what was heard and when, on the
// music track's clock.
package speech

import "context"

// Result is one recognition event from a [Recognizer]. Interim results
// carry the recognizer's running guess and are ignored by the ingest;
// only final results reach the log.
type Result struct {
	// Transcript is the recognized text, possibly several words.
	Transcript string

	// Final reports whether the recognizer has committed to this text.
	Final bool

	// Confidence is the recognizer's confidence in [0, 1]; zero when the
	// recognizer does not report one.
	Confidence float64
}

// Recognizer is the external speech source the engine consumes. A
// recognizer may be started and stopped repeatedly within one session
// (the engine stops it on pause and on transient-error restarts).
//
// Implementations must keep the Results and Errors channels valid across
// restarts and must be safe for concurrent use.
type Recognizer interface {
	// Start begins listening. It returns an error when the recognizer
	// cannot start at all, wrapping one of the sentinel errors below.
	Start(ctx context.Context) error

	// Stop stops listening. Stopping an already-stopped recognizer is a
	// no-op.
	Stop() error

	// Results returns the channel recognition results are delivered on.
	Results() <-chan Result

	// Errors returns the channel runtime errors are delivered on. Errors
	// wrapping [ErrPermissionDenied] are terminal; everything else is
	// treated as transient and triggers an automatic restart.
	Errors() <-chan error
}
