// Package mock provides a manually stepped timing.Scheduler for tests.
package mock

import (
	"sync"

	"github.com/MrWong99/singalong/internal/timing"
)

// Scheduler queues frame requests and fires them only when the test
// calls [Scheduler.Step]. All methods are safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]func()
	order   []int
}

var _ timing.Scheduler = (*Scheduler)(nil)

// NewScheduler returns an empty manual scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int]func())}
}

func (s *Scheduler) Request(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.pending[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pending, id)
	}
}

// Step fires the oldest pending request. It reports whether a request
// was fired.
func (s *Scheduler) Step() bool {
	s.mu.Lock()
	var fn func()
	for len(s.order) > 0 {
		id := s.order[0]
		s.order = s.order[1:]
		if f, ok := s.pending[id]; ok {
			delete(s.pending, id)
			fn = f
			break
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending returns the number of queued, uncancelled requests.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
