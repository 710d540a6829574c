// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/atomix"
)

// channel is the blocking handshake channel: the state machine plus its
// two semaphores. valueReady is signaled only by the producer side and
// sendReady only by the consumer side.
type channel[Y, S, R any] struct {
	hs         *handshake[Y, S, R]
	valueReady Sema
	sendReady  Sema
}

// Stream is the consumer side of a blocking generator.
//
// The type parameter Y is what the producer yields, S is what the consumer
// sends back to a yield point, and R is the producer's return value.
// A Stream serves one consumer; its methods must not be called concurrently.
type Stream[Y, S, R any] struct {
	ch      *channel[Y, S, R]
	started atomix.Uint32
	launch  func()

	done bool
	end  error
}

// Continuation is the producer side of a blocking generator.
// It must only be used from the producer's goroutine.
type Continuation[Y, S, R any] struct {
	ch     *channel[Y, S, R]
	closed bool
}

// New returns a stream whose producer runs on a dedicated goroutine.
// The goroutine is started by the first call to Next, never before.
//
// If producer returns without calling Return or Throw, the consumer's
// pending Next or Send fails with ErrUsage.
func New[Y, S, R any](producer func(*Continuation[Y, S, R])) *Stream[Y, S, R] {
	s, c := NewPair[Y, S, R]()
	s.launch = func() {
		go func() {
			producer(c)
			c.exit()
		}()
	}
	return s
}

// NewPair returns a stream and its continuation for a producer driven by
// the caller. Next launches nothing; the caller must arrange for the
// continuation to be used from another goroutine.
func NewPair[Y, S, R any]() (*Stream[Y, S, R], *Continuation[Y, S, R]) {
	ch := &channel[Y, S, R]{hs: newHandshake[Y, S, R]()}
	return &Stream[Y, S, R]{ch: ch}, &Continuation[Y, S, R]{ch: ch}
}

// Serial returns the serial number shared by both sides of the stream.
func (s *Stream[Y, S, R]) Serial() Serial {
	return s.ch.hs.serial
}

// Phase returns the protocol state. It is meaningful between calls to
// Next and Send, while the producer is parked or has terminated.
func (s *Stream[Y, S, R]) Phase() Phase {
	return s.ch.hs.phase()
}

// Next starts the producer and returns its first yielded value.
//
// Next is the only legal first call and may be called once. Once the
// stream has terminated, Next returns the cached terminal error: an
// [*EndError] carrying the return value, a [*ProducerError], or a
// [*UsageError].
func (s *Stream[Y, S, R]) Next() (Y, error) {
	if s.done {
		var zero Y
		return zero, s.end
	}
	if s.started.Add(1) != 1 {
		var zero Y
		return zero, errAlreadyStarted
	}
	if s.launch != nil {
		s.launch()
	}
	s.ch.valueReady.Wait()
	return s.observe(errExitedOnNext)
}

// Send answers the producer's pending yield with v and returns the
// producer's next yielded value. Send fails with ErrUsage before Next.
func (s *Stream[Y, S, R]) Send(v S) (Y, error) {
	if s.done {
		var zero Y
		return zero, s.end
	}
	if s.started.Add(0) == 0 {
		var zero Y
		return zero, errNotStarted
	}
	s.ch.hs.put(v)
	s.ch.sendReady.Signal()
	s.ch.valueReady.Wait()
	return s.observe(errExitedOnSend)
}

func (s *Stream[Y, S, R]) observe(exited *UsageError) (Y, error) {
	v, done, err := s.ch.hs.observe(exited)
	if done {
		s.done = true
		s.end = err
	}
	return v, err
}

// Yield hands v to the consumer, parks until the consumer calls Send, and
// returns the sent value. Yield after Return or Throw panics.
func (c *Continuation[Y, S, R]) Yield(v Y) S {
	c.mustOpen("Yield")
	c.ch.hs.deposit(v)
	c.ch.valueReady.Signal()
	c.ch.sendReady.Wait()
	return c.ch.hs.take()
}

// Return terminates the stream with r. Every later Next or Send on the
// consumer side returns an [*EndError] carrying r.
func (c *Continuation[Y, S, R]) Return(r R) {
	c.mustOpen("Return")
	c.closed = true
	c.ch.hs.finish(r)
	c.ch.valueReady.Signal()
}

// Throw terminates the stream with err, recording the caller's location.
func (c *Continuation[Y, S, R]) Throw(err error) {
	c.mustOpen("Throw")
	c.closed = true
	c.ch.hs.fail(newProducerError(err, c.ch.hs.serial, 1))
	c.ch.valueReady.Signal()
}

func (c *Continuation[Y, S, R]) mustOpen(op string) {
	if c.closed {
		panic("handoff: " + op + " after stream termination")
	}
}

// exit runs after the producer body returns. A body that never terminated
// the stream wakes the consumer, which then observes a usage violation.
func (c *Continuation[Y, S, R]) exit() {
	if c.closed {
		return
	}
	c.closed = true
	c.ch.valueReady.Signal()
}
