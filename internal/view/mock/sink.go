// Package mock provides a recording view.Sink for tests.
package mock

import (
	"sync"

	"github.com/MrWong99/singalong/internal/view"
)

// SentenceCall records one RenderSentence invocation.
type SentenceCall struct {
	SentenceIdx int
	WordIdx     int
	Phase       view.Phase
	Countdown   float64
}

// RowCall records one UpdateTargetRow invocation.
type RowCall struct {
	TargetID int
	Tokens   []string
	Jaro     []float64
	Trigram  []float64
	Matched  bool
}

// CounterCall records one UpdateMatchCounter invocation.
type CounterCall struct {
	Matched int
	Total   int
}

// HighlightCall records one HighlightTargetRow invocation.
type HighlightCall struct {
	TargetID int
	On       bool
}

// Sink records every view update it receives. All methods are safe for
// concurrent use.
type Sink struct {
	mu         sync.Mutex
	Sentences  []SentenceCall
	Images     []int
	Progress   []float64
	Highlights []HighlightCall
	Rows       []RowCall
	Counters   []CounterCall
	Fades      []bool
}

var _ view.Sink = (*Sink)(nil)

func (s *Sink) RenderSentence(sentenceIdx, wordIdx int, phase view.Phase, countdown float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sentences = append(s.Sentences, SentenceCall{sentenceIdx, wordIdx, phase, countdown})
}

func (s *Sink) SetImage(sentenceIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Images = append(s.Images, sentenceIdx)
}

func (s *Sink) UpdateProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Progress = append(s.Progress, fraction)
}

func (s *Sink) HighlightTargetRow(targetID int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Highlights = append(s.Highlights, HighlightCall{targetID, on})
}

func (s *Sink) UpdateTargetRow(targetID int, tokens []string, jaro, trigram []float64, matched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = append(s.Rows, RowCall{targetID, tokens, jaro, trigram, matched})
}

func (s *Sink) UpdateMatchCounter(matched, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Counters = append(s.Counters, CounterCall{matched, total})
}

func (s *Sink) FadeLyrics(in bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fades = append(s.Fades, in)
}

// LastSentence returns the most recent RenderSentence call, if any.
func (s *Sink) LastSentence() (SentenceCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sentences) == 0 {
		return SentenceCall{}, false
	}
	return s.Sentences[len(s.Sentences)-1], true
}

// LastCounter returns the most recent UpdateMatchCounter call, if any.
func (s *Sink) LastCounter() (CounterCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Counters) == 0 {
		return CounterCall{}, false
	}
	return s.Counters[len(s.Counters)-1], true
}

// RowsFor returns every UpdateTargetRow call recorded for targetID.
func (s *Sink) RowsFor(targetID int) []RowCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RowCall
	for _, r := range s.Rows {
		if r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out
}

// FadeCalls returns a copy of every FadeLyrics call recorded so far.
func (s *Sink) FadeCalls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool{}, s.Fades...)
}

// Reset clears all recorded calls.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sentences = nil
	s.Images = nil
	s.Progress = nil
	s.Highlights = nil
	s.Rows = nil
	s.Counters = nil
	s.Fades = nil
}
