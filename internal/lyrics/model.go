package lyrics

// Word is a resolved lyric word with absolute timing on the music track.
type Word struct {
	Text   string
	Start  float64
	End    float64
	Target bool
}

// Sentence is a resolved lyric line. Start and End span the first and
// last word, including empty gap words.
type Sentence struct {
	Image string
	Words []Word
	Start float64
	End   float64
}

// TargetWord is one scored occurrence of a target word, with its
// listening window already clamped to the enclosing sentence.
//
// The lyric model builds the registry; the scoring engine owns the
// per-target mutable score state and refers back here read-only.
type TargetWord struct {
	// ID is the index of this entry in the registry, used as the stable
	// row identifier in view updates.
	ID int

	SentenceIndex int
	WordIndex     int
	Text          string

	// WordStart and WordEnd are the word's true sung interval.
	WordStart float64
	WordEnd   float64

	// WindowStart and WindowEnd bound the listening window during which
	// recognized tokens count toward this target.
	WindowStart float64
	WindowEnd   float64
}

// Model is the immutable indexed view over a validated dataset.
// All methods are safe for concurrent use.
type Model struct {
	songSource  string
	musicSource string
	sentences   []Sentence
	targets     []TargetWord

	offset          float64
	lastSentenceEnd float64
	totalEnd        float64

	highlightLead float64
	previewLead   float64
}

// SongSource returns the vocal mix asset reference.
func (m *Model) SongSource() string { return m.songSource }

// MusicSource returns the instrumental mix asset reference.
func (m *Model) MusicSource() string { return m.musicSource }

// SentenceCount returns the number of sentences.
func (m *Model) SentenceCount() int { return len(m.sentences) }

// Sentence returns the resolved sentence at index i.
func (m *Model) Sentence(i int) Sentence { return m.sentences[i] }

// Offset returns the start time of the first word of the first sentence.
func (m *Model) Offset() float64 { return m.offset }

// LastSentenceEnd returns the end time of the final sentence.
func (m *Model) LastSentenceEnd() float64 { return m.lastSentenceEnd }

// TotalEnd returns the later of the last word's end time and the
// dataset's declared total song length.
func (m *Model) TotalEnd() float64 { return m.totalEnd }

// Targets returns the target-word registry in song order. The returned
// slice is shared; callers must treat it as read-only.
func (m *Model) Targets() []TargetWord { return m.targets }

// SentenceAt returns the index of the sentence whose [start, end)
// interval contains t, or -1 when no sentence is current.
//
// The first sentence is additionally reported as current during a short
// pre-roll before it starts; early is true in that case so the view can
// preview the line before active highlighting begins.
func (m *Model) SentenceAt(t float64) (idx int, early bool) {
	if len(m.sentences) == 0 {
		return -1, false
	}
	for i, s := range m.sentences {
		if t >= s.Start && t < s.End {
			return i, false
		}
	}
	if first := m.sentences[0]; t >= first.Start-m.previewLead && t < first.Start {
		return 0, true
	}
	return -1, false
}

// HighlightedWord returns the index of the word to highlight within
// sentence sentenceIdx at music time t, or -1 when none applies.
//
// A word is highlighted when t lies in [start − highlightLead, end].
// At most one word is returned; the earliest word in the sentence wins
// when lead-in intervals overlap. Empty-text gap words never highlight.
func (m *Model) HighlightedWord(sentenceIdx int, t float64) int {
	if sentenceIdx < 0 || sentenceIdx >= len(m.sentences) {
		return -1
	}
	for i, w := range m.sentences[sentenceIdx].Words {
		if w.Text == "" {
			continue
		}
		if t >= w.Start-m.highlightLead && t <= w.End {
			return i
		}
	}
	return -1
}
