package lyrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrMalformedDataset is wrapped by every validation failure reported
// from [Load]. A malformed dataset is terminal — no session can start.
var ErrMalformedDataset = errors.New("lyrics: malformed dataset")

// Default window and highlight policy, in seconds.
const (
	defaultPreWindow     = 5.0
	defaultPostWindow    = 2.0
	defaultHighlightLead = 0.2
	defaultPreviewLead   = 2.0
)

// offsetTolerance bounds the allowed disagreement between a declared
// offset and the first word's start time. Reference datasets round
// timestamps to two decimals.
const offsetTolerance = 0.01

// Option configures dataset loading.
type Option func(*loadParams)

type loadParams struct {
	preWindow     float64
	postWindow    float64
	highlightLead float64
}

// WithWindow sets the listening-window margins in seconds: pre before a
// target word's start, post after its end. Defaults: 5 and 2.
func WithWindow(pre, post float64) Option {
	return func(p *loadParams) {
		p.preWindow = pre
		p.postWindow = post
	}
}

// WithHighlightLead sets how many seconds before a word's start time the
// word is already highlighted. Default: 0.2.
func WithHighlightLead(lead float64) Option {
	return func(p *loadParams) {
		p.highlightLead = lead
	}
}

// LoadFile reads and validates the JSON dataset at path.
func LoadFile(path string, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lyrics: open %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadFromReader(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("lyrics: load %q: %w", path, err)
	}
	return m, nil
}

// LoadFromReader decodes a JSON dataset from r and validates the result.
// Useful in tests where datasets are constructed from string literals.
func LoadFromReader(r io.Reader, opts ...Option) (*Model, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("lyrics: decode json: %w", err)
	}
	return Load(&ds, opts...)
}

// Load validates ds and builds the indexed [Model], including the
// target-word registry with listening windows clamped to sentence
// bounds. Violated invariants are reported as a joined error wrapping
// [ErrMalformedDataset].
func Load(ds *Dataset, opts ...Option) (*Model, error) {
	p := loadParams{
		preWindow:     defaultPreWindow,
		postWindow:    defaultPostWindow,
		highlightLead: defaultHighlightLead,
	}
	for _, o := range opts {
		o(&p)
	}

	if len(ds.Sentences) == 0 {
		return nil, fmt.Errorf("%w: no sentences", ErrMalformedDataset)
	}

	var errs []error

	// cursor tracks the running absolute time for legacy duration-only
	// sentences; it starts at the declared offset and advances past the
	// end of each resolved sentence.
	cursor := 0.0
	if ds.Offset != nil {
		cursor = *ds.Offset
	}

	sentences := make([]Sentence, 0, len(ds.Sentences))
	for si, sd := range ds.Sentences {
		s, err := resolveSentence(si, sd, cursor)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sentences = append(sentences, s)
		cursor = s.End
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Cross-sentence invariants.
	for i := 1; i < len(sentences); i++ {
		if sentences[i].Start < sentences[i-1].End {
			errs = append(errs, fmt.Errorf(
				"%w: sentence %d starts at %.3f before sentence %d ends at %.3f",
				ErrMalformedDataset, i, sentences[i].Start, i-1, sentences[i-1].End))
		}
	}

	firstStart := sentences[0].Start
	if ds.Offset != nil && math.Abs(*ds.Offset-firstStart) > offsetTolerance {
		errs = append(errs, fmt.Errorf(
			"%w: offset %.3f disagrees with first word start %.3f",
			ErrMalformedDataset, *ds.Offset, firstStart))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	lastEnd := sentences[len(sentences)-1].End
	totalEnd := lastEnd
	if ds.TotalSongLength > totalEnd {
		totalEnd = ds.TotalSongLength
	}

	m := &Model{
		songSource:      ds.SongSource,
		musicSource:     ds.MusicSource,
		sentences:       sentences,
		offset:          firstStart,
		lastSentenceEnd: lastEnd,
		totalEnd:        totalEnd,
		highlightLead:   p.highlightLead,
		previewLead:     defaultPreviewLead,
	}
	m.targets = buildRegistry(sentences, p)
	return m, nil
}

// resolveSentence converts one sentence to absolute timing. base is the
// absolute start time a legacy duration-only sentence is anchored at.
func resolveSentence(si int, sd SentenceData, base float64) (Sentence, error) {
	if len(sd.Words) == 0 {
		return Sentence{}, fmt.Errorf("%w: sentence %d has no words", ErrMalformedDataset, si)
	}

	abs := 0
	for _, w := range sd.Words {
		if w.absolute() {
			abs++
		}
	}
	if abs != 0 && abs != len(sd.Words) {
		return Sentence{}, fmt.Errorf(
			"%w: sentence %d mixes start/end and duration timing conventions",
			ErrMalformedDataset, si)
	}

	words := make([]Word, len(sd.Words))
	if abs == len(sd.Words) {
		for wi, wd := range sd.Words {
			if *wd.StartTime > *wd.EndTime {
				return Sentence{}, fmt.Errorf(
					"%w: sentence %d word %d: start %.3f after end %.3f",
					ErrMalformedDataset, si, wi, *wd.StartTime, *wd.EndTime)
			}
			words[wi] = Word{Text: wd.Text, Start: *wd.StartTime, End: *wd.EndTime, Target: wd.TargetWord}
		}
	} else {
		t := base
		for wi, wd := range sd.Words {
			if wd.Duration == nil {
				return Sentence{}, fmt.Errorf(
					"%w: sentence %d word %d has neither start/end nor duration",
					ErrMalformedDataset, si, wi)
			}
			if *wd.Duration < 0 {
				return Sentence{}, fmt.Errorf(
					"%w: sentence %d word %d: negative duration %.3f",
					ErrMalformedDataset, si, wi, *wd.Duration)
			}
			words[wi] = Word{Text: wd.Text, Start: t, End: t + *wd.Duration, Target: wd.TargetWord}
			t = words[wi].End
		}
	}

	for wi := 1; wi < len(words); wi++ {
		if words[wi].End < words[wi-1].End {
			return Sentence{}, fmt.Errorf(
				"%w: sentence %d word %d: end time %.3f decreases below %.3f",
				ErrMalformedDataset, si, wi, words[wi].End, words[wi-1].End)
		}
	}

	s := Sentence{
		Words: words,
		Start: words[0].Start,
		End:   words[len(words)-1].End,
	}
	if sd.Image != nil {
		s.Image = *sd.Image
	}
	return s, nil
}

// buildRegistry derives one TargetWord per flagged non-empty word, with
// the listening window clamped to the enclosing sentence's bounds.
func buildRegistry(sentences []Sentence, p loadParams) []TargetWord {
	var targets []TargetWord
	for si, s := range sentences {
		for wi, w := range s.Words {
			if !w.Target || w.Text == "" {
				continue
			}
			targets = append(targets, TargetWord{
				ID:            len(targets),
				SentenceIndex: si,
				WordIndex:     wi,
				Text:          w.Text,
				WordStart:     w.Start,
				WordEnd:       w.End,
				WindowStart:   math.Max(w.Start-p.preWindow, s.Start),
				WindowEnd:     math.Min(w.End+p.postWindow, s.End),
			})
		}
	}
	return targets
}
