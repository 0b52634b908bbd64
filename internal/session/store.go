package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"go-chi-calculator/internal/engine"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

const (
	defaultShards = 16
	defaultTTL    = 30 * time.Minute
)

// NowFunc returns the current time.
type NowFunc func() time.Time

// Option configures a Store.
type Option func(*Store)

// WithShards sets the number of lock shards. Values below one are ignored.
func WithShards(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithTTL sets how long a session may stay idle before Sweep drops it.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// WithNowFunc sets a custom clock, mainly for tests.
func WithNowFunc(now NowFunc) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithEngineOptions are passed to every engine the store creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Store) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// Store keeps one calculator engine per UI session.
type Store struct {
	shards     []*shard
	shardCount int
	ttl        time.Duration
	now        NowFunc
	engineOpts []engine.Option
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore(options ...Option) *Store {
	s := &Store{
		shardCount: defaultShards,
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, option := range options {
		option(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// Create starts a new session with a fresh engine.
func (s *Store) Create() *Session {
	sess := &Session{
		id:       uuid.New().String(),
		engine:   engine.New(s.engineOpts...),
		lastSeen: s.now(),
		now:      s.now,
	}

	sh := s.shardFor(sess.id)
	sh.mu.Lock()
	sh.sessions[sess.id] = sess
	sh.mu.Unlock()

	return sess
}

// Get returns the session with the given ID. Sessions idle past the TTL
// are reported as not found even before the next sweep.
func (s *Store) Get(id string) (*Session, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	sess, ok := sh.sessions[id]
	sh.mu.RUnlock()

	if !ok || s.expired(sess, s.now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(sh.sessions, id)
	return nil
}

// Len returns the number of sessions currently held.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep drops idle sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if s.expired(sess, now) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done. onSweep, when non-nil, is
// called with the number of sessions removed by each sweep.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return now.Sub(sess.LastSeen()) > s.ttl
}
