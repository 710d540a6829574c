// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Sema is a blocking counting semaphore.
//
// A Signal either hands its permit directly to one parked waiter or, when
// nobody waits, adds it to the count. A bounded wait that gives up is
// removed from the queue under the same lock, so every waiter is resolved
// exactly once: by a Signal or by its deadline, never both.
//
// Wake order among several parked waiters is unspecified.
type Sema struct {
	mu      sync.Mutex
	permits int
	waiters deque.Deque[*semaWaiter]
}

// semaWaiter is one parked Wait call. ready is buffered so Signal never
// blocks while holding the lock.
type semaWaiter struct {
	ready chan struct{}
}

// NewSema returns a semaphore holding permits initial permits.
func NewSema(permits int) *Sema {
	if permits < 0 {
		panic("handoff: negative semaphore permits")
	}
	return &Sema{permits: permits}
}

// Permits returns the number of permits currently available.
func (s *Sema) Permits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// TryWait takes a permit if one is available without blocking.
func (s *Sema) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}

// Signal releases one permit, resuming one waiter if any is parked.
func (s *Sema) Signal() {
	s.mu.Lock()
	if s.waiters.Len() > 0 {
		w := s.waiters.PopFront()
		s.mu.Unlock()
		w.ready <- struct{}{}
		return
	}
	s.permits++
	s.mu.Unlock()
}

// Wait blocks until a permit is available and takes it.
func (s *Sema) Wait() {
	w := s.enqueue()
	if w == nil {
		return
	}
	<-w.ready
}

// WaitTimeout is Wait bounded by d. It reports whether a permit was taken.
func (s *Sema) WaitTimeout(d time.Duration) bool {
	w := s.enqueue()
	if w == nil {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.ready:
		return true
	case <-t.C:
		return !s.abandon(w)
	}
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() when ctx is done
// before a permit is taken.
func (s *Sema) WaitContext(ctx context.Context) error {
	w := s.enqueue()
	if w == nil {
		return nil
	}
	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		if s.abandon(w) {
			return ctx.Err()
		}
		return nil
	}
}

// enqueue takes a permit immediately and returns nil, or parks a new
// waiter and returns it.
func (s *Sema) enqueue() *semaWaiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 {
		s.permits--
		return nil
	}
	w := &semaWaiter{ready: make(chan struct{}, 1)}
	s.waiters.PushBack(w)
	return w
}

// abandon removes w from the queue after its deadline fired. It reports
// false when a Signal already dequeued w, in which case the permit is
// consumed here and the wait counts as successful.
func (s *Sema) abandon(w *semaWaiter) bool {
	s.mu.Lock()
	i := s.waiters.Index(func(x *semaWaiter) bool { return x == w })
	if i >= 0 {
		s.waiters.Remove(i)
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()
	<-w.ready
	return false
}
