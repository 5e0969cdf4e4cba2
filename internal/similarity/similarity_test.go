package similarity_test

import (
	"math"
	"testing"

	"github.com/MrWong99/singalong/internal/similarity"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestJaro(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"ribbit", "ribbit", 1},
		{"", "", 0},
		{"ribbit", "", 0},
		{"", "ribbit", 0},
		{"martha", "marhta", 0.944444},
		{"dixon", "dicksonx", 0.766667},
		{"twinkle", "twinkel", 0.952381},
		{"a", "b", 0},
	}

	for _, tt := range tests {
		got := similarity.Jaro(tt.a, tt.b)
		if !almostEqual(got, tt.want) {
			t.Errorf("Jaro(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaro_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"ribbit", "rabbit"},
		{"little", "litle"},
		{"star", "stars"},
	}
	for _, p := range pairs {
		ab := similarity.Jaro(p[0], p[1])
		ba := similarity.Jaro(p[1], p[0])
		if math.Abs(ab-ba) > epsilon {
			t.Errorf("Jaro(%q, %q)=%f differs from Jaro(%q, %q)=%f", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestJaro_Range(t *testing.T) {
	t.Parallel()

	words := []string{"", "a", "frog", "ribbit", "twinkle", "sky", "diamond"}
	for _, a := range words {
		for _, b := range words {
			got := similarity.Jaro(a, b)
			if got < 0 || got > 1 {
				t.Errorf("Jaro(%q, %q) = %f out of [0, 1]", a, b, got)
			}
		}
	}
}

func TestTrigramSim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"ribbit", "ribbit", 1},
		{"", "", 0},
		{"ribbit", "", 0},
		{"a", "b", 0},
		// " little " and " kitten " share only the "itt" gram: 1 / (6+6-1).
		{"little", "kitten", 1.0 / 11.0},
	}

	for _, tt := range tests {
		got := similarity.TrigramSim(tt.a, tt.b)
		if !almostEqual(got, tt.want) {
			t.Errorf("TrigramSim(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTrigramSim_PartialOverlapBeatsDisjoint(t *testing.T) {
	t.Parallel()

	near := similarity.TrigramSim("ribbit", "ribbits")
	far := similarity.TrigramSim("ribbit", "meow")
	if near <= far {
		t.Errorf("TrigramSim(ribbit, ribbits)=%f should exceed TrigramSim(ribbit, meow)=%f", near, far)
	}
}

func TestNormalizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Ribbit!", "ribbit"},
		{"ribbit.", "ribbit"},
		{"I'm", "im"},
		{"  Star  ", "star"},
		{"...", ""},
		{"Twinkle,", "twinkle"},
		{"abc123", "abc123"},
	}

	for _, tt := range tests {
		if got := similarity.NormalizeToken(tt.in); got != tt.want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
