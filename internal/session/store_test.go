package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"go-chi-calculator/internal/engine"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore()
	sess := s.Create()

	if _, err := uuid.Parse(sess.ID()); err != nil {
		t.Fatalf("expected UUID session id, got %q: %v", sess.ID(), err)
	}

	got, err := s.Get(sess.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != sess {
		t.Fatal("expected Get to return the created session")
	}

	if st := got.State(); st.Entry != "0" {
		t.Fatalf("expected fresh engine, got entry %q", st.Entry)
	}
}

func TestGetUnknown(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore()
	sess := s.Create()

	if err := s.Delete(sess.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(sess.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d sessions", s.Len())
	}
}

func TestSessionApply(t *testing.T) {
	sess := NewStore().Create()

	st := sess.Apply(engine.Digit(5), engine.Operator(engine.OpAdd), engine.Digit(3), engine.Simple(engine.EventEquals))
	if st.Entry != "8" || st.Formula != "5 + 3 =" {
		t.Fatalf("expected 8 and %q, got %+v", "5 + 3 =", st)
	}

	if st := sess.Reset(); st.Entry != "0" || st.Formula != "" {
		t.Fatalf("expected reset state, got %+v", st)
	}
}

func TestSweepDropsIdleSessions(t *testing.T) {
	clock := newClock()
	s := NewStore(WithTTL(time.Minute), WithNowFunc(clock.Now), WithShards(4))

	idle := s.Create()
	clock.Advance(30 * time.Second)
	active := s.Create()
	clock.Advance(45 * time.Second)

	if _, err := s.Get(idle.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected idle session to read as expired, got %v", err)
	}

	active.Apply(engine.Digit(1))

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", s.Len())
	}
	if _, err := s.Get(active.ID()); err != nil {
		t.Fatalf("expected active session to survive, got %v", err)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	clock := newClock()
	s := NewStore(WithTTL(0), WithNowFunc(clock.Now))
	sess := s.Create()

	clock.Advance(24 * time.Hour)

	if removed := s.Sweep(); removed != 0 {
		t.Fatalf("expected nothing removed, got %d", removed)
	}
	if _, err := s.Get(sess.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShardsSpreadSessions(t *testing.T) {
	s := NewStore(WithShards(8))
	for i := 0; i < 200; i++ {
		s.Create()
	}

	used := 0
	for _, sh := range s.shards {
		if len(sh.sessions) > 0 {
			used++
		}
	}
	if used < 2 {
		t.Fatalf("expected sessions across several shards, got %d used", used)
	}
	if s.Len() != 200 {
		t.Fatalf("expected 200 sessions, got %d", s.Len())
	}
}

func TestConcurrentApplyIsSerialized(t *testing.T) {
	sess := NewStore().Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Apply(engine.Digit(1), engine.Simple(engine.EventBackspace))
		}()
	}
	wg.Wait()

	if st := sess.State(); st.Entry != "0" {
		t.Fatalf("expected entry %q after paired events, got %q", "0", st.Entry)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	clock := newClock()
	s := NewStore(WithTTL(time.Millisecond), WithNowFunc(clock.Now))
	s.Create()
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})

	go func() {
		s.Run(ctx, time.Millisecond, func(removed int) {
			if removed > 0 {
				select {
				case swept <- removed:
				default:
				}
			}
		})
		close(done)
	}()

	select {
	case n := <-swept:
		if n != 1 {
			t.Fatalf("expected 1 session swept, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sweep")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWithEngineOptions(t *testing.T) {
	s := NewStore(WithEngineOptions(engine.WithMessages(engine.Messages{engine.ErrorDivideByZero: "nope"})))
	sess := s.Create()

	st := sess.Apply(engine.Special(engine.SpecialReciprocal))
	if st.Entry != "nope" {
		t.Fatalf("expected custom message, got %q", st.Entry)
	}
}
