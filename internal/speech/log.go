package speech

import (
	"sort"
	"sync"
)

// Token is one normalized recognized word with the music-track time at
// which it was appended.
type Token struct {
	Text       string
	Time       float64
	Confidence float64
}

// Log is the append-only recognition log: single writer (the ingest),
// multiple readers (the scoring engine). Timestamps are monotonically
// non-decreasing — appends with an earlier time are clamped forward.
//
// All methods are safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	tokens []Token
}

// NewLog returns an empty recognition log.
func NewLog() *Log {
	return &Log{}
}

// Append adds tok to the log. If tok.Time precedes the last entry's
// time it is clamped to it, preserving monotonicity.
func (l *Log) Append(tok Token) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.tokens); n > 0 && tok.Time < l.tokens[n-1].Time {
		tok.Time = l.tokens[n-1].Time
	}
	l.tokens = append(l.tokens, tok)
}

// Len returns the number of logged tokens.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tokens)
}

// Snapshot returns a copy of the full log in append order.
func (l *Log) Snapshot() []Token {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Token, len(l.tokens))
	copy(out, l.tokens)
	return out
}

// LastN returns a copy of the most recent n tokens in append order.
// Fewer are returned when the log is shorter than n.
func (l *Log) LastN(n int) []Token {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.tokens) {
		n = len(l.tokens)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Token, n)
	copy(out, l.tokens[len(l.tokens)-n:])
	return out
}

// NearestTo returns up to n tokens whose timestamps are closest to t,
// in chronological order. Ties favour the earlier token.
func (l *Log) NearestTo(t float64, n int) []Token {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.tokens) == 0 {
		return nil
	}

	idx := make([]int, len(l.tokens))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da := abs(l.tokens[idx[a]].Time - t)
		db := abs(l.tokens[idx[b]].Time - t)
		if da != db {
			return da < db
		}
		return idx[a] < idx[b]
	})

	if n > len(idx) {
		n = len(idx)
	}
	picked := idx[:n]
	sort.Ints(picked)

	out := make([]Token, n)
	for i, j := range picked {
		out[i] = l.tokens[j]
	}
	return out
}

// Reset discards every logged token.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
