package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidRecognizerNames lists the recognizer implementations the server
// knows how to construct. Used by [Validate] to warn about typos.
var ValidRecognizerNames = []string{"whisper", "none"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Karaoke tuning. Zero means default; everything else must be sane.
	k := cfg.Karaoke
	if k.PreWindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("karaoke.pre_window_seconds %.2f must not be negative", k.PreWindowSeconds))
	}
	if k.PostWindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("karaoke.post_window_seconds %.2f must not be negative", k.PostWindowSeconds))
	}
	if k.HighlightLeadSeconds < 0 {
		errs = append(errs, fmt.Errorf("karaoke.highlight_lead_seconds %.2f must not be negative", k.HighlightLeadSeconds))
	}
	if k.CaptureTokens < 0 {
		errs = append(errs, fmt.Errorf("karaoke.capture_tokens %d must not be negative", k.CaptureTokens))
	}
	if k.JaroThreshold < 0 || k.JaroThreshold > 1 {
		errs = append(errs, fmt.Errorf("karaoke.jaro_threshold %.2f is out of range [0, 1]", k.JaroThreshold))
	}
	if k.TrigramThreshold < 0 || k.TrigramThreshold > 1 {
		errs = append(errs, fmt.Errorf("karaoke.trigram_threshold %.2f is out of range [0, 1]", k.TrigramThreshold))
	}
	if k.SyncToleranceSeconds < 0 {
		errs = append(errs, fmt.Errorf("karaoke.sync_tolerance_seconds %.2f must not be negative", k.SyncToleranceSeconds))
	}
	if k.FadeDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("karaoke.fade_delay_seconds %.2f must not be negative", k.FadeDelaySeconds))
	}

	// Recognizer
	rec := cfg.Recognizer
	if rec.Name != "" && !slices.Contains(ValidRecognizerNames, rec.Name) {
		slog.Warn("unknown recognizer name — may be a typo or an externally registered recognizer",
			"name", rec.Name,
			"known", ValidRecognizerNames,
		)
	}
	if rec.Name == "whisper" && rec.ModelPath == "" {
		errs = append(errs, errors.New("recognizer.model_path is required when recognizer.name is whisper"))
	}
	if rec.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("recognizer.sample_rate %d must not be negative", rec.SampleRate))
	}
	if rec.Name == "" {
		slog.Warn("no recognizer configured; target words will not be scored")
	}

	return errors.Join(errs...)
}
