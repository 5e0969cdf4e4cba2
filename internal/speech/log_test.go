package speech_test

import (
	"testing"

	"github.com/MrWong99/singalong/internal/speech"
)

func fill(l *speech.Log, entries ...speech.Token) {
	for _, e := range entries {
		l.Append(e)
	}
}

func texts(tokens []speech.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func equalTexts(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLog_AppendMonotonicTimestamps(t *testing.T) {
	t.Parallel()

	l := speech.NewLog()
	fill(l,
		speech.Token{Text: "twinkle", Time: 6.5},
		speech.Token{Text: "little", Time: 6.2}, // earlier: clamped forward
		speech.Token{Text: "star", Time: 8.9},
	)

	snap := l.Snapshot()
	if snap[1].Time != 6.5 {
		t.Errorf("clamped time = %f, want 6.5", snap[1].Time)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Time < snap[i-1].Time {
			t.Fatalf("timestamps not monotone at %d: %f < %f", i, snap[i].Time, snap[i-1].Time)
		}
	}
}

func TestLog_LastN(t *testing.T) {
	t.Parallel()

	l := speech.NewLog()
	fill(l,
		speech.Token{Text: "a", Time: 1},
		speech.Token{Text: "b", Time: 2},
		speech.Token{Text: "c", Time: 3},
	)

	if got := texts(l.LastN(2)); !equalTexts(got, "b", "c") {
		t.Errorf("LastN(2) = %v, want [b c]", got)
	}
	if got := texts(l.LastN(10)); !equalTexts(got, "a", "b", "c") {
		t.Errorf("LastN(10) = %v, want whole log", got)
	}
	if got := l.LastN(0); got != nil {
		t.Errorf("LastN(0) = %v, want nil", got)
	}
}

func TestLog_NearestTo(t *testing.T) {
	t.Parallel()

	l := speech.NewLog()
	fill(l,
		speech.Token{Text: "little", Time: 20.5},
		speech.Token{Text: "are", Time: 27.6},
		speech.Token{Text: "world", Time: 31.3},
	)

	// Midpoint of the "little" word interval (19.8–21.1).
	got := l.NearestTo(20.45, 1)
	if !equalTexts(texts(got), "little") {
		t.Fatalf("NearestTo(20.45, 1) = %v, want [little]", texts(got))
	}

	// Asking for more than exists returns everything, in time order.
	got = l.NearestTo(20.45, 15)
	if !equalTexts(texts(got), "little", "are", "world") {
		t.Errorf("NearestTo(20.45, 15) = %v, want chronological full log", texts(got))
	}

	// Closest two to 29 are "are" and "world", chronological.
	got = l.NearestTo(29, 2)
	if !equalTexts(texts(got), "are", "world") {
		t.Errorf("NearestTo(29, 2) = %v, want [are world]", texts(got))
	}
}

func TestLog_NearestTo_Empty(t *testing.T) {
	t.Parallel()

	l := speech.NewLog()
	if got := l.NearestTo(5, 3); got != nil {
		t.Errorf("NearestTo on empty log = %v, want nil", got)
	}
}

func TestLog_Reset(t *testing.T) {
	t.Parallel()

	l := speech.NewLog()
	fill(l, speech.Token{Text: "a", Time: 1})
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", l.Len())
	}
}
