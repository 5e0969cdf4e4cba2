// Package wsaudio receives microphone audio from the browser over a
// websocket and exposes it as a sample stream for the recognizer. The
// client sends binary messages of little-endian float32 PCM frames at
// the negotiated sample rate.
package wsaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// frameBuffer bounds the number of undelivered frames. The recognizer
// consumes in near real time; sustained overflow means it stalled, and
// dropping old audio beats unbounded growth.
const frameBuffer = 128

// ErrClosed is returned from Read after Close. It wraps [io.EOF] so
// consumers that only understand the generic end-of-stream condition
// stop cleanly.
var ErrClosed = fmt.Errorf("wsaudio: source closed: %w", io.EOF)

// Source adapts a websocket microphone feed to a pull-based sample
// stream. It is an [http.Handler]: mount it on the audio upload route.
// Only one client feeds the source at a time; a second connection
// replaces the first.
type Source struct {
	// frames is never closed; shutdown is signalled through done so a
	// pump goroutine mid-send cannot race Close.
	frames chan []float32
	done   chan struct{}

	mu     sync.Mutex
	active *websocket.Conn
	closed bool
}

var _ http.Handler = (*Source)(nil)

// NewSource returns a Source with no connected client.
func NewSource() *Source {
	return &Source{
		frames: make(chan []float32, frameBuffer),
		done:   make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and pumps binary PCM messages into the
// frame queue until the client disconnects.
func (s *Source) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("wsaudio: accept failed", "err", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "source closed")
		return
	}
	if prev := s.active; prev != nil {
		prev.Close(websocket.StatusPolicyViolation, "replaced by a new audio client")
	}
	s.active = conn
	s.mu.Unlock()
	slog.Info("wsaudio: microphone client connected")

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			break
		}
		if typ != websocket.MessageBinary || len(data) < 4 {
			continue
		}
		if !s.enqueue(decodeSamples(data)) {
			break
		}
	}

	s.mu.Lock()
	if s.active == conn {
		s.active = nil
	}
	s.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "bye")
	slog.Info("wsaudio: microphone client disconnected")
}

// enqueue queues a frame for delivery, dropping the oldest frame when
// the queue is full. It reports false once the source is closed.
func (s *Source) enqueue(frame []float32) bool {
	select {
	case <-s.done:
		return false
	case s.frames <- frame:
		return true
	default:
	}
	// Recognizer is behind; drop the oldest frame to make room.
	select {
	case <-s.frames:
	default:
	}
	select {
	case <-s.done:
		return false
	case s.frames <- frame:
	default:
		// Raced with a refill; drop this frame instead.
	}
	return true
}

// Read returns the next PCM frame, blocking until one arrives, ctx is
// cancelled, or the source is closed.
func (s *Source) Read(ctx context.Context) ([]float32, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	case frame := <-s.frames:
		return frame, nil
	}
}

// Close disconnects the active client and ends all pending Reads.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.active != nil {
		s.active.Close(websocket.StatusGoingAway, "source closed")
		s.active = nil
	}
	return nil
}

// decodeSamples converts little-endian float32 PCM bytes to samples.
// Trailing bytes that do not complete a sample are discarded.
func decodeSamples(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
