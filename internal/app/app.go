// Package app assembles the karaoke engine into a runnable server: it
// loads the lyric dataset, wires the audio transport, frame loop,
// speech pipeline and scoring engine together and exposes the websocket
// view stream plus a small control API over HTTP.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/singalong/internal/audio"
	"github.com/MrWong99/singalong/internal/config"
	"github.com/MrWong99/singalong/internal/lyrics"
	"github.com/MrWong99/singalong/internal/scoring"
	"github.com/MrWong99/singalong/internal/session"
	"github.com/MrWong99/singalong/internal/speech"
	"github.com/MrWong99/singalong/internal/timing"
	"github.com/MrWong99/singalong/internal/view/ws"
)

const defaultListenAddr = ":8080"

// App is the assembled singalong server.
type App struct {
	cfg     *config.Config
	sink    *ws.Sink
	session *session.Session
	scorer  *scoring.Engine
	ticker  *timing.Ticker
	ingest  *speech.Ingest
	srv     *http.Server

	// baseCtx outlives individual control requests; the speech pipeline
	// is bound to it, not to the request that pressed play.
	baseCtx context.Context
}

// New loads the dataset referenced by cfg and wires the full engine.
// The registry supplies the recognizer implementation selected in
// cfg.Recognizer; pass a registry without that name registered (or the
// name "none") for a display-only server.
func New(ctx context.Context, cfg *config.Config, registry *config.Registry) (*App, error) {
	if cfg.Song.Dataset == "" {
		return nil, errors.New("app: song.dataset is not configured")
	}

	var loadOpts []lyrics.Option
	if cfg.Karaoke.PreWindowSeconds > 0 || cfg.Karaoke.PostWindowSeconds > 0 {
		loadOpts = append(loadOpts, lyrics.WithWindow(cfg.Karaoke.PreWindowSeconds, cfg.Karaoke.PostWindowSeconds))
	}
	if cfg.Karaoke.HighlightLeadSeconds > 0 {
		loadOpts = append(loadOpts, lyrics.WithHighlightLead(cfg.Karaoke.HighlightLeadSeconds))
	}

	model, err := lyrics.LoadFile(cfg.Song.Dataset, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	slog.Info("dataset loaded",
		"path", cfg.Song.Dataset,
		"sentences", model.SentenceCount(),
		"targets", len(model.Targets()),
		"length", model.TotalEnd(),
	)

	sink := ws.NewSink()

	// The server drives timing from wall clocks; the browser plays the
	// referenced audio assets and follows the broadcast position.
	var ctrlOpts []audio.Option
	if cfg.Karaoke.SyncToleranceSeconds > 0 {
		ctrlOpts = append(ctrlOpts, audio.WithSyncTolerance(cfg.Karaoke.SyncToleranceSeconds))
	}
	if cfg.Karaoke.DisableVocalMuting {
		ctrlOpts = append(ctrlOpts, audio.WithoutVocalMuting())
	}
	controller := audio.NewController(ctrlOpts...)
	controller.Attach(audio.NewClock(model.TotalEnd()), audio.NewClock(model.TotalEnd()))

	log := speech.NewLog()

	var ingest *speech.Ingest
	if name := cfg.Recognizer.Name; name != "" && name != "none" {
		rec, err := registry.CreateRecognizer(cfg.Recognizer)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		ingest, err = speech.NewIngest(speech.IngestConfig{
			Recognizer: rec,
			Log:        log,
			Clock:      controller.CurrentTime,
			OnTerminal: func(err error) {
				slog.Error("speech recognition ended for this session", "err", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Info("recognizer ready", "name", name)
	}

	scorer := scoring.New(scoring.Config{
		Targets:          model.Targets(),
		Log:              log,
		View:             sink,
		CaptureK:         cfg.Karaoke.CaptureTokens,
		JaroThreshold:    cfg.Karaoke.JaroThreshold,
		TrigramThreshold: cfg.Karaoke.TrigramThreshold,
		PhoneticAssist:   cfg.Karaoke.PhoneticAssist,
	})

	ticker, err := timing.NewTicker(timing.Config{
		Model:     model,
		Transport: controller,
		Scorer:    scorer,
		View:      sink,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	sessCfg := session.Config{
		Transport: controller,
		Frames:    ticker,
		Scorer:    scorer,
		Log:       log,
		View:      sink,
		FadeDelay: time.Duration(cfg.Karaoke.FadeDelaySeconds * float64(time.Second)),
	}
	if ingest != nil {
		sessCfg.Listener = ingest
	}
	sess, err := session.New(sessCfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:     cfg,
		sink:    sink,
		session: sess,
		scorer:  scorer,
		ticker:  ticker,
		ingest:  ingest,
		baseCtx: ctx,
	}

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	a.srv = &http.Server{
		Addr:              addr,
		Handler:           a.routes(model),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// Handler returns the server's HTTP surface, for embedding or testing.
func (a *App) Handler() http.Handler {
	return a.srv.Handler
}

// RunWithHandler is [App.Run] with the app's routes replaced by handler,
// for callers that mount additional routes around [App.Handler].
func (a *App) RunWithHandler(ctx context.Context, handler http.Handler) error {
	a.srv.Handler = handler
	return a.Run(ctx)
}

// Run serves HTTP until ctx is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the engine: the frame loop, speech capture and all
// websocket clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.ticker.Stop()
	if a.ingest != nil {
		a.ingest.Stop()
	}
	a.sink.Close()
	return ctx.Err()
}

// routes builds the HTTP surface: the websocket view stream, Prometheus
// metrics and the session control API.
func (a *App) routes(model *lyrics.Model) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /ws", a.sink)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/song", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"song_source":  model.SongSource(),
			"music_source": model.MusicSource(),
			"sentences":    model.SentenceCount(),
			"targets":      len(model.Targets()),
			"length":       model.TotalEnd(),
		})
	})

	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		matched, total := a.scorer.MatchedCount()
		writeJSON(w, map[string]any{
			"state":   a.session.State(),
			"matched": matched,
			"total":   total,
		})
	})

	mux.HandleFunc("POST /api/start", func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.Start(a.baseCtx); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/pause", func(w http.ResponseWriter, r *http.Request) {
		a.session.Pause()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/seek", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if v := q.Get("to"); v != "" {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, "invalid 'to' value", http.StatusBadRequest)
				return
			}
			a.session.SeekTo(t)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if v := q.Get("by"); v != "" {
			d, err := strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, "invalid 'by' value", http.StatusBadRequest)
				return
			}
			a.session.SeekBy(d)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "missing 'to' or 'by' parameter", http.StatusBadRequest)
	})

	mux.HandleFunc("POST /api/reset", func(w http.ResponseWriter, r *http.Request) {
		a.session.Reset()
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("app: write response", "err", err)
	}
}
