// Command singalong is the karaoke engine server: it loads a timed-lyrics
// dataset, scores sung target words against live speech recognition and
// streams the display state to the browser front end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/singalong/internal/app"
	"github.com/MrWong99/singalong/internal/config"
	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/speech"
	"github.com/MrWong99/singalong/internal/speech/whisper"
	"github.com/MrWong99/singalong/internal/speech/wsaudio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "singalong.yaml", "path to the YAML configuration file")
	datasetPath := flag.String("dataset", "", "path to a timed-lyrics JSON dataset (overrides song.dataset)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "singalong: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "singalong: %v\n", err)
		}
		return 1
	}
	if *datasetPath != "" {
		cfg.Song.Dataset = *datasetPath
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("singalong starting",
		"config", *configPath,
		"dataset", cfg.Song.Dataset,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Only the log level applies live; everything else needs a restart or
	// takes effect on the next play-through.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ScoringChanged || d.WindowChanged {
			slog.Warn("scoring or window settings changed — restart to apply them")
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	metricsShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "singalong",
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsShutdown(ctx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Recognizer registry ───────────────────────────────────────────────────
	// The whisper recognizer is fed by the browser's microphone over the
	// /ws/audio route; the source outlives individual connections.
	micSource := wsaudio.NewSource()
	defer micSource.Close()

	reg := config.NewRegistry()
	reg.RegisterRecognizer("whisper", func(entry config.RecognizerConfig) (speech.Recognizer, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		if entry.SampleRate > 0 {
			opts = append(opts, whisper.WithSampleRate(entry.SampleRate))
		}
		return whisper.New(entry.ModelPath, micSource, opts...)
	})

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Mount the microphone ingress next to the application's routes.
	mux := http.NewServeMux()
	mux.Handle("GET /ws/audio", micSource)
	mux.Handle("/", application.Handler())

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.RunWithHandler(ctx, mux); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        singalong — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Dataset", cfg.Song.Dataset)
	recognizer := cfg.Recognizer.Name
	if recognizer == "" || recognizer == "none" {
		recognizer = "(display only)"
	}
	printRow("Recognizer", recognizer)
	if cfg.Karaoke.PhoneticAssist {
		printRow("Phonetic assist", "on")
	} else {
		printRow("Phonetic assist", "off")
	}
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	printRow("Listen addr", addr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = "…" + value[len(value)-18:]
	}
	fmt.Printf("║  %-15s : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := &slog.LevelVar{}
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
