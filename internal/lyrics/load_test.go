package lyrics_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/singalong/internal/lyrics"
)

func fp(v float64) *float64 { return &v }

// twinkleDataset returns a small absolute-timing dataset in the shape the
// song transcription tooling emits.
func twinkleDataset() *lyrics.Dataset {
	img := "star.png"
	return &lyrics.Dataset{
		Offset:          fp(6.0),
		TotalSongLength: 34.0,
		SongSource:      "twinkle_song.mp3",
		MusicSource:     "twinkle_music.mp3",
		Sentences: []lyrics.SentenceData{
			{
				Image: &img,
				Words: []lyrics.WordData{
					{Text: "Twinkle", StartTime: fp(6.0), EndTime: fp(6.8)},
					{Text: "twinkle", StartTime: fp(6.9), EndTime: fp(7.7)},
					{Text: "little", StartTime: fp(7.8), EndTime: fp(8.4)},
					{Text: "star", StartTime: fp(8.5), EndTime: fp(9.6), TargetWord: true},
				},
			},
			{
				Words: []lyrics.WordData{
					{Text: "How", StartTime: fp(10.0), EndTime: fp(10.5)},
					{Text: "I", StartTime: fp(10.6), EndTime: fp(10.9)},
					{Text: "wonder", StartTime: fp(11.0), EndTime: fp(11.8)},
					{Text: "what", StartTime: fp(11.9), EndTime: fp(12.3)},
					{Text: "you", StartTime: fp(12.4), EndTime: fp(12.7)},
					{Text: "are", StartTime: fp(12.8), EndTime: fp(13.8), TargetWord: true},
				},
			},
			{
				Words: []lyrics.WordData{
					{Text: "Up", StartTime: fp(14.0), EndTime: fp(14.4)},
					{Text: "above", StartTime: fp(14.5), EndTime: fp(15.3)},
					{Text: "the", StartTime: fp(15.4), EndTime: fp(15.6)},
					{Text: "world", StartTime: fp(15.7), EndTime: fp(16.3)},
					{Text: "so", StartTime: fp(16.4), EndTime: fp(16.8)},
					{Text: "high", StartTime: fp(16.9), EndTime: fp(18.0), TargetWord: true},
					{Text: "", StartTime: fp(18.0), EndTime: fp(19.0)},
					{Text: "little", StartTime: fp(19.8), EndTime: fp(21.1), TargetWord: true},
				},
			},
		},
	}
}

func TestLoad_Valid(t *testing.T) {
	t.Parallel()

	m, err := lyrics.Load(twinkleDataset())
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}

	if got := m.SentenceCount(); got != 3 {
		t.Fatalf("SentenceCount = %d, want 3", got)
	}
	if got := m.Offset(); got != 6.0 {
		t.Errorf("Offset = %f, want 6.0", got)
	}
	if got := m.LastSentenceEnd(); got != 21.1 {
		t.Errorf("LastSentenceEnd = %f, want 21.1", got)
	}
	if got := m.TotalEnd(); got != 34.0 {
		t.Errorf("TotalEnd = %f, want declared total_song_length 34.0", got)
	}
	if got := m.Sentence(0).Image; got != "star.png" {
		t.Errorf("Sentence(0).Image = %q, want star.png", got)
	}
	if got := m.MusicSource(); got != "twinkle_music.mp3" {
		t.Errorf("MusicSource = %q", got)
	}
}

func TestLoad_TotalEndFallsBackToLastWord(t *testing.T) {
	t.Parallel()

	ds := twinkleDataset()
	ds.TotalSongLength = 0
	m, err := lyrics.Load(ds)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.TotalEnd(); got != 21.1 {
		t.Errorf("TotalEnd = %f, want last word end 21.1", got)
	}
}

func TestLoad_TargetRegistry(t *testing.T) {
	t.Parallel()

	m, err := lyrics.Load(twinkleDataset())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	targets := m.Targets()
	if len(targets) != 4 {
		t.Fatalf("got %d targets, want 4", len(targets))
	}

	star := targets[0]
	if star.Text != "star" || star.SentenceIndex != 0 || star.WordIndex != 3 {
		t.Fatalf("targets[0] = %+v, want star at sentence 0 word 3", star)
	}
	// Window start 8.5 − 5 = 3.5 clamps to the sentence start 6.0; window
	// end 9.6 + 2 = 11.6 clamps to the sentence end 9.6.
	if star.WindowStart != 6.0 || star.WindowEnd != 9.6 {
		t.Errorf("star window = [%f, %f], want [6.0, 9.6]", star.WindowStart, star.WindowEnd)
	}

	little := targets[3]
	if little.Text != "little" || little.WordStart != 19.8 || little.WordEnd != 21.1 {
		t.Fatalf("targets[3] = %+v, want little at [19.8, 21.1]", little)
	}
	// 19.8 − 5 = 14.8 stays inside the sentence; 21.1 + 2 clamps to 21.1.
	if little.WindowStart != 14.8 || little.WindowEnd != 21.1 {
		t.Errorf("little window = [%f, %f], want [14.8, 21.1]", little.WindowStart, little.WindowEnd)
	}

	for i, tw := range targets {
		if tw.ID != i {
			t.Errorf("targets[%d].ID = %d, want %d", i, tw.ID, i)
		}
	}
}

func TestLoad_LegacyDurationTiming(t *testing.T) {
	t.Parallel()

	ds := &lyrics.Dataset{
		Offset:      fp(2.0),
		SongSource:  "frog_song.mp3",
		MusicSource: "frog_music.mp3",
		Sentences: []lyrics.SentenceData{
			{
				Words: []lyrics.WordData{
					{Text: "I'm", Duration: fp(0.5)},
					{Text: "a", Duration: fp(0.25)},
					{Text: "", Duration: fp(0.5)}, // gap still advances time
					{Text: "frog", Duration: fp(0.75), TargetWord: true},
				},
			},
			{
				Words: []lyrics.WordData{
					{Text: "ribbit", Duration: fp(1.0), TargetWord: true},
				},
			},
		},
	}

	m, err := lyrics.Load(ds)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s0 := m.Sentence(0)
	if s0.Start != 2.0 || s0.End != 4.0 {
		t.Fatalf("sentence 0 spans [%f, %f], want [2.0, 4.0]", s0.Start, s0.End)
	}
	frog := s0.Words[3]
	if frog.Start != 3.25 || frog.End != 4.0 {
		t.Errorf("frog spans [%f, %f], want [3.25, 4.0]", frog.Start, frog.End)
	}

	// The second legacy sentence continues from the first one's end.
	s1 := m.Sentence(1)
	if s1.Start != 4.0 || s1.End != 5.0 {
		t.Errorf("sentence 1 spans [%f, %f], want [4.0, 5.0]", s1.Start, s1.End)
	}

	// The gap word is never a highlight candidate but still advanced time.
	if idx := m.HighlightedWord(0, 2.6); idx != 1 {
		t.Errorf("HighlightedWord(0, 2.6) = %d, want 1 (%q)", idx, "a")
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*lyrics.Dataset)
	}{
		{
			name: "mixed conventions in one sentence",
			mutate: func(ds *lyrics.Dataset) {
				ds.Sentences[0].Words[1] = lyrics.WordData{Text: "twinkle", Duration: fp(0.8)}
			},
		},
		{
			name: "start after end",
			mutate: func(ds *lyrics.Dataset) {
				ds.Sentences[0].Words[0].StartTime = fp(7.5)
			},
		},
		{
			name: "decreasing end times",
			mutate: func(ds *lyrics.Dataset) {
				ds.Sentences[1].Words[2].StartTime = fp(10.0)
				ds.Sentences[1].Words[2].EndTime = fp(10.2)
			},
		},
		{
			name: "overlapping sentences",
			mutate: func(ds *lyrics.Dataset) {
				ds.Sentences[1].Words[0].StartTime = fp(9.0)
			},
		},
		{
			name: "offset disagrees with first word",
			mutate: func(ds *lyrics.Dataset) {
				ds.Offset = fp(4.2)
			},
		},
		{
			name: "empty sentence",
			mutate: func(ds *lyrics.Dataset) {
				ds.Sentences[1].Words = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ds := twinkleDataset()
			tt.mutate(ds)
			_, err := lyrics.Load(ds)
			if err == nil {
				t.Fatal("Load: want error, got nil")
			}
			if !errors.Is(err, lyrics.ErrMalformedDataset) {
				t.Fatalf("Load: error %v does not wrap ErrMalformedDataset", err)
			}
		})
	}
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	const doc = `{
	  "offset": 1.0,
	  "total_song_length": 10,
	  "song_source": "song.mp3",
	  "music_source": "music.mp3",
	  "sentences": [
	    {"image": null, "words": [
	      {"text": "Hello", "start_time": 1.0, "end_time": 1.5, "target_word": false},
	      {"text": "world", "start_time": 1.6, "end_time": 2.4, "target_word": true}
	    ]}
	  ]
	}`

	m, err := lyrics.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := len(m.Targets()); got != 1 {
		t.Fatalf("got %d targets, want 1", got)
	}
	if m.Targets()[0].Text != "world" {
		t.Errorf("target text = %q, want world", m.Targets()[0].Text)
	}
}

func TestLoadFromReader_InvalidJSON(t *testing.T) {
	t.Parallel()

	if _, err := lyrics.LoadFromReader(strings.NewReader("{not json")); err == nil {
		t.Fatal("LoadFromReader: want decode error, got nil")
	}
}
