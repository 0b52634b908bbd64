package session

import (
	"sync"
	"time"

	"go-chi-calculator/internal/engine"
)

// Session owns one engine. All access to the engine goes through the
// session mutex, so concurrent requests for the same session run one at a
// time in arrival order.
type Session struct {
	id  string
	now NowFunc

	mu       sync.Mutex
	engine   *engine.Engine
	lastSeen time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Apply runs events in order and returns the state after the last one.
func (s *Session) Apply(events ...engine.Event) engine.State {
	return s.Do(func(e *engine.Engine) {
		for _, ev := range events {
			e.Apply(ev)
		}
	})
}

// Do runs fn with exclusive access to the engine and returns the state
// afterwards. fn must not retain e.
func (s *Session) Do(fn func(e *engine.Engine)) engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
	fn(s.engine)
	return s.engine.State()
}

// State returns the current rendering. Reading does not refresh the idle
// timer.
func (s *Session) State() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.State()
}

// Reset returns the engine to its initial state.
func (s *Session) Reset() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
	return s.engine.Reset()
}

// LastSeen returns the time of the last mutating call.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}
