// Package config provides the configuration schema, loader, file watcher
// and recognizer registry for the singalong server.
package config

// LogLevel controls log verbosity for the singalong server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for singalong.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Song       SongConfig       `yaml:"song"`
	Karaoke    KaraokeConfig    `yaml:"karaoke"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
}

// ServerConfig holds network and logging settings for the singalong server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// SongConfig references the song assets to load at startup.
type SongConfig struct {
	// Dataset is the path to the timed-lyrics JSON file. Audio asset
	// references (song_source, music_source) come from the dataset itself.
	Dataset string `yaml:"dataset"`
}

// KaraokeConfig tunes the timing and scoring engine. Every zero value
// means "use the built-in default", so an empty section is a valid
// configuration.
type KaraokeConfig struct {
	// PreWindowSeconds opens each listening window this many seconds
	// before the target word starts. Default: 5.
	PreWindowSeconds float64 `yaml:"pre_window_seconds"`

	// PostWindowSeconds keeps each listening window open this many
	// seconds after the target word ends. Default: 2.
	PostWindowSeconds float64 `yaml:"post_window_seconds"`

	// HighlightLeadSeconds highlights a word this many seconds before its
	// start time. Default: 0.2.
	HighlightLeadSeconds float64 `yaml:"highlight_lead_seconds"`

	// CaptureTokens is the number of recognition tokens scored per
	// listening window. Default: 15.
	CaptureTokens int `yaml:"capture_tokens"`

	// JaroThreshold is the Jaro similarity above which a token matches.
	// Default: 0.8.
	JaroThreshold float64 `yaml:"jaro_threshold"`

	// TrigramThreshold is the trigram similarity above which a token
	// matches. Default: 0.4.
	TrigramThreshold float64 `yaml:"trigram_threshold"`

	// PhoneticAssist additionally accepts phonetically aligned tokens.
	PhoneticAssist bool `yaml:"phonetic_assist"`

	// SyncToleranceSeconds bounds the allowed drift between the vocal and
	// instrumental tracks. Default: 0.1.
	SyncToleranceSeconds float64 `yaml:"sync_tolerance_seconds"`

	// DisableVocalMuting turns off vocal gating over target words, so the
	// recorded voice sings them too.
	DisableVocalMuting bool `yaml:"disable_vocal_muting"`

	// FadeDelaySeconds is how long the final display lingers before the
	// lyric fade-out. Default: 5.
	FadeDelaySeconds float64 `yaml:"fade_delay_seconds"`
}

// RecognizerConfig selects and configures the speech recognizer. The
// name selects a factory registered in the [Registry].
type RecognizerConfig struct {
	// Name of the recognizer implementation ("whisper", or "none" for a
	// display-only session).
	Name string `yaml:"name"`

	// ModelPath is the recognizer model file (required for whisper).
	ModelPath string `yaml:"model_path"`

	// Language hint for recognition (e.g. "en"). Empty means auto.
	Language string `yaml:"language"`

	// SampleRate of the captured audio in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`
}
