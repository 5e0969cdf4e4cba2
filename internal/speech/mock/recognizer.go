// Package mock provides a scriptable speech.Recognizer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/singalong/internal/speech"
)

// Recognizer is a test double for [speech.Recognizer]. Tests push results
// and errors through EmitFinal, EmitInterim, and EmitError.
//
// All methods are safe for concurrent use.
type Recognizer struct {
	mu         sync.Mutex
	started    bool
	startCalls int
	stopCalls  int
	startErrs  []error // consumed front-to-back by Start

	results chan speech.Result
	errs    chan error
}

var _ speech.Recognizer = (*Recognizer)(nil)

// NewRecognizer returns an idle mock recognizer with buffered channels.
func NewRecognizer() *Recognizer {
	return &Recognizer{
		results: make(chan speech.Result, 64),
		errs:    make(chan error, 16),
	}
}

// FailNextStart queues err to be returned by the next Start call.
func (r *Recognizer) FailNextStart(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErrs = append(r.startErrs, err)
}

func (r *Recognizer) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCalls++
	if len(r.startErrs) > 0 {
		err := r.startErrs[0]
		r.startErrs = r.startErrs[1:]
		return err
	}
	r.started = true
	return nil
}

func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
	r.started = false
	return nil
}

func (r *Recognizer) Results() <-chan speech.Result { return r.results }

func (r *Recognizer) Errors() <-chan error { return r.errs }

// EmitFinal delivers a final transcript with the given confidence.
func (r *Recognizer) EmitFinal(transcript string, confidence float64) {
	r.results <- speech.Result{Transcript: transcript, Final: true, Confidence: confidence}
}

// EmitInterim delivers an interim (non-final) transcript.
func (r *Recognizer) EmitInterim(transcript string) {
	r.results <- speech.Result{Transcript: transcript, Final: false}
}

// EmitError delivers a runtime error.
func (r *Recognizer) EmitError(err error) {
	r.errs <- err
}

// Started reports whether the recognizer is currently started.
func (r *Recognizer) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// StartCalls returns how many times Start was invoked.
func (r *Recognizer) StartCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalls
}

// StopCalls returns how many times Stop was invoked.
func (r *Recognizer) StopCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCalls
}
