// Package similarity provides the two string-similarity metrics used to
// decide whether a recognized speech token matches a target lyric word:
// the Jaro distance and a padded trigram-set (Jaccard) similarity.
//
// Both metrics operate on already-normalized tokens — lower-cased, with
// punctuation stripped and whitespace collapsed. [NormalizeToken] performs
// that normalization and is shared with the speech ingest path so that the
// scoring engine always compares like with like.
//
// All functions are pure and safe for concurrent use.
package similarity

import "strings"

// Jaro returns the Jaro similarity of a and b in [0, 1].
//
// Identical strings score 1; if either string is empty the score is 0.
// Characters match when they are equal and no further apart than
// ⌊max(|a|,|b|)/2⌋ − 1 positions, each position in b matching at most
// once (earliest unmatched wins). Transpositions are counted by walking
// the matched characters of both strings in order.
func Jaro(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	la, lb := len(a), len(b)
	radius := max(la, lb)/2 - 1
	if radius < 0 {
		radius = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-radius)
		hi := min(lb-1, i+radius)
		for j := lo; j <= hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Count transpositions: matched characters that disagree when both
	// match sequences are read in order.
	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

// TrigramSim returns the trigram-set similarity of a and b in [0, 1].
//
// Each string is padded with one leading and one trailing space before
// its 3-grams are enumerated into a set; the result is the Jaccard index
// |A∩B| / (|A| + |B| − |A∩B|), or 0 when both sets are empty.
func TrigramSim(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)

	inter := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			inter++
		}
	}

	denom := len(ta) + len(tb) - inter
	if denom == 0 {
		return 0
	}
	return float64(inter) / float64(denom)
}

// trigrams returns the set of 3-grams of s padded with a single leading
// and trailing space. Strings shorter than one character yield no grams.
func trigrams(s string) map[string]struct{} {
	if s == "" {
		return nil
	}
	padded := " " + s + " "
	grams := make(map[string]struct{}, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		grams[padded[i:i+3]] = struct{}{}
	}
	return grams
}

// NormalizeToken lower-cases s and strips every character that is not an
// ASCII letter or digit. The empty result means the token carried no
// usable content and should be dropped by the caller.
func NormalizeToken(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			sb.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			sb.WriteByte(c + ('a' - 'A'))
		}
	}
	return sb.String()
}
