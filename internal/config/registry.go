package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/singalong/internal/speech"
)

// ErrRecognizerNotRegistered is returned by [Registry.CreateRecognizer]
// when no factory has been registered under the requested name.
var ErrRecognizerNotRegistered = errors.New("config: recognizer not registered")

// Registry maps recognizer names to their constructor functions. It is
// safe for concurrent use. The main binary registers the recognizers it
// is built with; tests register fakes.
type Registry struct {
	mu          sync.RWMutex
	recognizers map[string]func(RecognizerConfig) (speech.Recognizer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		recognizers: make(map[string]func(RecognizerConfig) (speech.Recognizer, error)),
	}
}

// RegisterRecognizer registers a factory under name, replacing any
// previous registration.
func (r *Registry) RegisterRecognizer(name string, factory func(RecognizerConfig) (speech.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = factory
}

// CreateRecognizer constructs the recognizer selected by entry.Name.
func (r *Registry) CreateRecognizer(entry RecognizerConfig) (speech.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.recognizers[entry.Name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRecognizerNotRegistered, entry.Name)
	}
	rec, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create recognizer %q: %w", entry.Name, err)
	}
	return rec, nil
}

// Names returns the registered recognizer names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.recognizers))
	for name := range r.recognizers {
		names = append(names, name)
	}
	return names
}
