// Package ws exposes the engine's view updates over a websocket. Every
// connected client receives the same JSON event stream; the browser
// front end renders lyric spans, the progress bar and the target-word
// table from it.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/singalong/internal/view"
)

// Event is one display update on the wire. Type discriminates which
// fields are meaningful; the rest carry their zero values. Zero is
// itself meaningful for most fields (sentence 0, word 0, target 0,
// highlight off), so none of them may be elided from the JSON.
type Event struct {
	Type string `json:"type"`

	// sentence
	SentenceIdx int        `json:"sentence_idx"`
	WordIdx     int        `json:"word_idx"`
	Phase       view.Phase `json:"phase,omitempty"`
	Countdown   float64    `json:"countdown"`

	// progress
	Fraction float64 `json:"fraction"`

	// highlight, target_row
	TargetID int       `json:"target_id"`
	On       bool      `json:"on"`
	Tokens   []string  `json:"tokens,omitempty"`
	Jaro     []float64 `json:"jaro,omitempty"`
	Trigram  []float64 `json:"trigram,omitempty"`
	Matched  bool      `json:"matched"`

	// match_counter
	MatchedCount int `json:"matched_count"`
	TotalCount   int `json:"total_count"`

	// fade
	In bool `json:"in"`
}

// Wire event types.
const (
	EventSentence     = "sentence"
	EventImage        = "image"
	EventProgress     = "progress"
	EventHighlight    = "highlight"
	EventTargetRow    = "target_row"
	EventMatchCounter = "match_counter"
	EventFade         = "fade"
)

// sendBuffer bounds the per-client outbound queue. A client that cannot
// keep up loses intermediate events; every event type is safe to drop
// because a later event of the same type supersedes it.
const sendBuffer = 64

// Sink broadcasts view updates to all connected websocket clients. It
// is an [http.Handler]: mount it on the route the front end connects to.
//
// All methods are safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var _ view.Sink = (*Sink)(nil)
var _ http.Handler = (*Sink)(nil)

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewSink returns a Sink with no connected clients.
func NewSink() *Sink {
	return &Sink{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client disconnects or the sink is closed.
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("ws: accept failed", "err", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	slog.Info("ws: client connected", "clients", n)

	go s.writeLoop(r.Context(), c)

	// Reads are discarded; the loop exists to observe the close frame.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			break
		}
	}
	s.drop(c, websocket.StatusNormalClosure, "bye")
}

// Close disconnects every client. The sink discards all further events.
func (s *Sink) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.drop(c, websocket.StatusGoingAway, "server shutting down")
	}
}

// ClientCount returns the number of connected clients.
func (s *Sink) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Sink) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				s.drop(c, websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// drop removes c and closes its connection. Safe to call more than once
// per client.
func (s *Sink) drop(c *client, code websocket.StatusCode, reason string) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		close(c.done)
	}
	s.mu.Unlock()

	if ok {
		c.conn.Close(code, reason)
		slog.Info("ws: client disconnected", "reason", reason)
	}
}

// broadcast marshals ev once and queues it to every client. A full
// client queue drops the event for that client only.
func (s *Sink) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws: marshal event", "type", ev.Type, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Sink) RenderSentence(sentenceIdx, wordIdx int, phase view.Phase, countdown float64) {
	s.broadcast(Event{
		Type:        EventSentence,
		SentenceIdx: sentenceIdx,
		WordIdx:     wordIdx,
		Phase:       phase,
		Countdown:   countdown,
	})
}

func (s *Sink) SetImage(sentenceIdx int) {
	s.broadcast(Event{Type: EventImage, SentenceIdx: sentenceIdx})
}

func (s *Sink) UpdateProgress(fraction float64) {
	s.broadcast(Event{Type: EventProgress, Fraction: fraction})
}

func (s *Sink) HighlightTargetRow(targetID int, on bool) {
	s.broadcast(Event{Type: EventHighlight, TargetID: targetID, On: on})
}

func (s *Sink) UpdateTargetRow(targetID int, tokens []string, jaro, trigram []float64, matched bool) {
	s.broadcast(Event{
		Type:     EventTargetRow,
		TargetID: targetID,
		Tokens:   tokens,
		Jaro:     jaro,
		Trigram:  trigram,
		Matched:  matched,
	})
}

func (s *Sink) UpdateMatchCounter(matched, total int) {
	s.broadcast(Event{Type: EventMatchCounter, MatchedCount: matched, TotalCount: total})
}

func (s *Sink) FadeLyrics(in bool) {
	s.broadcast(Event{Type: EventFade, In: in})
}
