// Package sequencer serializes read-modify-write sections in strict FIFO
// order.
//
// Each call is chained behind the call submitted before it: it starts only
// once its predecessor has finished, whether the predecessor returned an
// error or panicked. The chain is built from per-call done channels since
// sync.Mutex does not hand off in arrival order.
package sequencer

import (
	"context"
	"sync"
	"sync/atomic"
)

// Sequencer runs functions one at a time in submission order. The zero value
// is ready to use.
type Sequencer struct {
	mu      sync.Mutex
	tail    chan struct{}
	pending atomic.Int64
}

// New returns an empty Sequencer.
func New() *Sequencer {
	return &Sequencer{}
}

// Do runs fn once every previously submitted call has completed.
//
// If ctx is cancelled while the call is still queued, Do returns ctx.Err()
// without running fn; the call's place in the chain is released only after
// its predecessor finishes, so later calls never overtake earlier ones.
// Once fn starts it runs to completion. A panic in fn releases the chain and
// is then re-raised in the caller's goroutine.
func (s *Sequencer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	prev, done := s.enqueue()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				s.release(done)
			}()
			return ctx.Err()
		}
	}

	defer s.release(done)
	return fn(ctx)
}

// Run is the value-returning form of Do.
func Run[T any](ctx context.Context, s *Sequencer, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// Pending reports how many calls are queued or running.
func (s *Sequencer) Pending() int {
	return int(s.pending.Load())
}

func (s *Sequencer) enqueue() (prev, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	done = make(chan struct{})
	prev = s.tail
	s.tail = done
	s.pending.Add(1)
	return prev, done
}

func (s *Sequencer) release(done chan struct{}) {
	s.pending.Add(-1)
	close(done)

	// Chain is idle.
	s.mu.Lock()
	if s.tail == done {
		s.tail = nil
	}
	s.mu.Unlock()
}
