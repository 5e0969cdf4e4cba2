package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; song and
// recognizer changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ScoringChanged is true when a threshold, the capture size or the
	// phonetic assist flag changed. The new values apply to the next
	// play-through.
	ScoringChanged bool

	// WindowChanged is true when the listening-window margins or the
	// highlight lead changed. A reload of the lyric model is needed for
	// these to take effect.
	WindowChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	ok, nk := old.Karaoke, new.Karaoke
	if ok.JaroThreshold != nk.JaroThreshold ||
		ok.TrigramThreshold != nk.TrigramThreshold ||
		ok.CaptureTokens != nk.CaptureTokens ||
		ok.PhoneticAssist != nk.PhoneticAssist {
		d.ScoringChanged = true
	}

	if ok.PreWindowSeconds != nk.PreWindowSeconds ||
		ok.PostWindowSeconds != nk.PostWindowSeconds ||
		ok.HighlightLeadSeconds != nk.HighlightLeadSeconds {
		d.WindowChanged = true
	}

	return d
}
