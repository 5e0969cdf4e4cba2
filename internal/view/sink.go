// Package view defines the sink interface through which the engine pushes
// display updates. The presentation surface (rendered lyric spans, progress
// bar, target-word table, images) is an external collaborator; the engine
// only ever calls these operations and never reads anything back.
package view

// Phase describes which part of the song the engine is currently in,
// derived purely from music time and the lyric model.
type Phase string

const (
	// PhaseIntro covers music time before the first lyric; the view shows
	// a countdown and, near the end, a preview of the first sentence.
	PhaseIntro Phase = "intro"

	// PhaseActive covers the sung portion of the track.
	PhaseActive Phase = "active"

	// PhaseOutro covers the trailing instrumental after the last sentence;
	// the view keeps the last sentence on screen.
	PhaseOutro Phase = "outro"

	// PhaseCompleted marks the end of the song.
	PhaseCompleted Phase = "completed"
)

// NoWord is passed as the highlighted word index when no word is active.
const NoWord = -1

// Sink receives display updates from the engine. Implementations are pure
// consumers: they must not call back into the engine and must return
// quickly, as several operations are emitted from the frame tick.
type Sink interface {
	// RenderSentence displays the sentence at sentenceIdx with the word at
	// wordIdx highlighted (NoWord for none). During PhaseIntro, countdown
	// carries the remaining seconds until the first lyric; it is zero in
	// every other phase. sentenceIdx may be -1 during an intro with no
	// preview yet.
	RenderSentence(sentenceIdx, wordIdx int, phase Phase, countdown float64)

	// SetImage swaps the illustration to the one belonging to sentenceIdx.
	SetImage(sentenceIdx int)

	// UpdateProgress reports playback progress as a fraction in [0, 1].
	UpdateProgress(fraction float64)

	// HighlightTargetRow toggles the listening indicator on the target
	// table row identified by targetID.
	HighlightTargetRow(targetID int, on bool)

	// UpdateTargetRow replaces the captured tokens, per-token scores, and
	// match verdict shown for targetID.
	UpdateTargetRow(targetID int, tokens []string, jaro, trigram []float64, matched bool)

	// UpdateMatchCounter updates the "matched / total" indicator.
	UpdateMatchCounter(matched, total int)

	// FadeLyrics fades the lyric display in (true) or out (false).
	FadeLyrics(in bool)
}

// NopSink is a Sink that discards every update. Useful as a default and
// in tests that do not inspect view output.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) RenderSentence(int, int, Phase, float64)                   {}
func (NopSink) SetImage(int)                                              {}
func (NopSink) UpdateProgress(float64)                                    {}
func (NopSink) HighlightTargetRow(int, bool)                              {}
func (NopSink) UpdateTargetRow(int, []string, []float64, []float64, bool) {}
func (NopSink) UpdateMatchCounter(int, int)                               {}
func (NopSink) FadeLyrics(bool)                                           {}
