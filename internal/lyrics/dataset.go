// Package lyrics holds the timed-lyric data model: the JSON dataset schema
// produced by the song transcription tooling, the loader that validates it,
// and the immutable indexed [Model] the timing and scoring engines query.
package lyrics

// Dataset is the on-disk JSON shape of a song's timed lyrics. It is the
// input to [Load] and is never mutated by the engine.
//
// Word timing comes in two conventions. The authoritative form carries
// absolute start_time/end_time per word. The legacy form carries a
// duration per word instead; absolute times are then derived by prefix
// sum, anchored at the global offset. A single sentence must not mix the
// two conventions.
type Dataset struct {
	// Offset is the start time of the first word of the first sentence,
	// in seconds on the music track. Optional for absolute-time datasets
	// (where it must agree with the first word when present); required
	// anchor for legacy duration-only datasets.
	Offset *float64 `json:"offset,omitempty"`

	// Outro is the declared trailing instrumental length in seconds.
	Outro float64 `json:"outro,omitempty"`

	// TotalSongLength is the declared full track length in seconds.
	TotalSongLength float64 `json:"total_song_length,omitempty"`

	// SongSource references the full vocal mix audio asset.
	SongSource string `json:"song_source"`

	// MusicSource references the instrumental mix audio asset. The
	// instrumental track is the timing authority for the whole engine.
	MusicSource string `json:"music_source"`

	Sentences []SentenceData `json:"sentences"`
}

// SentenceData is one displayed lyric line with an optional illustration.
type SentenceData struct {
	Image *string    `json:"image"`
	Words []WordData `json:"words"`
}

// WordData is a single timed word. Text may be empty, meaning a silent
// gap that still occupies time (relevant for legacy prefix-sum timing)
// but is never highlighted or scored.
type WordData struct {
	Text       string   `json:"text"`
	StartTime  *float64 `json:"start_time,omitempty"`
	EndTime    *float64 `json:"end_time,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	TargetWord bool     `json:"target_word"`
}

// absolute reports whether w carries authoritative start/end timing.
func (w WordData) absolute() bool {
	return w.StartTime != nil && w.EndTime != nil
}
