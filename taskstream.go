// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"time"

	"code.hybscloud.com/kont"
)

// taskChannel is the cooperative handshake channel: the state machine plus
// two task semaphores. Each protocol step is a single effect dispatch on
// the loop goroutine, so a transition and its signal are never separated
// by a suspension.
type taskChannel[Y, S, R any] struct {
	hs         *handshake[Y, S, R]
	valueReady TaskSema
	sendReady  TaskSema
}

// TaskStream is the consumer side of a cooperative generator.
// Its methods return computations to be run by tasks of one [Loop].
// Results are Right on a yielded value and Left on failure, where the
// failure is an [*EndError], a [*ProducerError] or a [*UsageError].
type TaskStream[Y, S, R any] struct {
	ch       *taskChannel[Y, S, R]
	cont     *TaskContinuation[Y, S, R]
	producer func(*TaskContinuation[Y, S, R]) kont.Eff[struct{}]
	started  bool

	done bool
	end  error
}

// TaskContinuation is the producer side of a cooperative generator.
type TaskContinuation[Y, S, R any] struct {
	ch     *taskChannel[Y, S, R]
	closed bool
}

// NewTaskStream returns a stream whose producer computation is spawned on
// the consumer's Loop by the first Next. producer is not called before
// that.
//
// If the producer computation completes without Return or Throw, the
// consumer's pending Next or Send fails with ErrUsage.
func NewTaskStream[Y, S, R any](producer func(*TaskContinuation[Y, S, R]) kont.Eff[struct{}]) *TaskStream[Y, S, R] {
	s, _ := NewTaskPair[Y, S, R]()
	s.producer = producer
	return s
}

// NewTaskPair returns a stream and its continuation for a producer task
// started by the caller on the same Loop. Next launches nothing.
func NewTaskPair[Y, S, R any]() (*TaskStream[Y, S, R], *TaskContinuation[Y, S, R]) {
	ch := &taskChannel[Y, S, R]{hs: newHandshake[Y, S, R]()}
	c := &TaskContinuation[Y, S, R]{ch: ch}
	return &TaskStream[Y, S, R]{ch: ch, cont: c}, c
}

// Serial returns the serial number shared by both sides of the stream.
func (s *TaskStream[Y, S, R]) Serial() Serial {
	return s.ch.hs.serial
}

// Phase returns the protocol state. Call it from a task or while the loop
// is not running.
func (s *TaskStream[Y, S, R]) Phase() Phase {
	return s.ch.hs.phase()
}

// Next starts the producer and waits for its first yielded value.
// It follows the same rules as [Stream.Next].
func (s *TaskStream[Y, S, R]) Next() kont.Eff[kont.Either[error, Y]] {
	return s.await(kont.Perform(startOp[Y, S, R]{s: s}), errExitedOnNext)
}

// Send answers the producer's pending yield with v and waits for the
// producer's next yielded value. It follows the same rules as [Stream.Send].
func (s *TaskStream[Y, S, R]) Send(v S) kont.Eff[kont.Either[error, Y]] {
	return s.await(kont.Perform(answerOp[Y, S, R]{s: s, value: v}), errExitedOnSend)
}

func (s *TaskStream[Y, S, R]) await(gate kont.Eff[kont.Either[error, struct{}]], exited *UsageError) kont.Eff[kont.Either[error, Y]] {
	return kont.Bind(gate, func(e kont.Either[error, struct{}]) kont.Eff[kont.Either[error, Y]] {
		if err, ok := e.GetLeft(); ok {
			return kont.Pure(kont.Left[error, Y](err))
		}
		return kont.Then(s.ch.valueReady.Wait(), kont.Perform(observeOp[Y, S, R]{s: s, exited: exited}))
	})
}

// Yield hands v to the consumer, parks until the consumer sends, and
// resumes with the sent value. Yield after Return or Throw panics.
func (c *TaskContinuation[Y, S, R]) Yield(v Y) kont.Eff[S] {
	return kont.Then(kont.Perform(depositOp[Y, S, R]{c: c, value: v}),
		kont.Then(c.ch.sendReady.Wait(),
			kont.Bind(kont.Perform(takeOp[Y, S, R]{c: c}), func(b box[S]) kont.Eff[S] {
				return kont.Pure(b.value)
			}),
		),
	)
}

// Return terminates the stream with r.
func (c *TaskContinuation[Y, S, R]) Return(r R) kont.Eff[struct{}] {
	return kont.Perform(returnOp[Y, S, R]{c: c, value: r})
}

// Throw terminates the stream with err. The location recorded in the
// resulting [*ProducerError] is the caller of Throw; its Time is when the
// throw takes effect on the loop.
func (c *TaskContinuation[Y, S, R]) Throw(err error) kont.Eff[struct{}] {
	return kont.Perform(throwOp[Y, S, R]{c: c, err: newProducerError(err, c.ch.hs.serial, 1)})
}

func (c *TaskContinuation[Y, S, R]) mustOpen(op string) {
	if c.closed {
		panic("handoff: " + op + " after stream termination")
	}
}

// box carries a sent value through Resumed so that a nil interface value
// of S is not mistaken for completion.
type box[T any] struct {
	value T
}

// startOp gates Next: replay a cached outcome, reject a second start,
// otherwise spawn the producer exactly once.
type startOp[Y, S, R any] struct {
	kont.Phantom[kont.Either[error, struct{}]]
	s *TaskStream[Y, S, R]
}

func (op startOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	s := op.s
	if s.done {
		return kont.Left[error, struct{}](s.end), true
	}
	if s.started {
		return kont.Left[error, struct{}](error(errAlreadyStarted)), true
	}
	s.started = true
	if s.producer != nil {
		c := s.cont
		body := kont.Then(s.producer(c), kont.Perform(exitOp[Y, S, R]{c: c}))
		l.schedule(&task{expr: kont.Reify(body)})
	}
	return kont.Right[error, struct{}](struct{}{}), true
}

// answerOp gates Send and deposits the consumer's answer.
type answerOp[Y, S, R any] struct {
	kont.Phantom[kont.Either[error, struct{}]]
	s     *TaskStream[Y, S, R]
	value S
}

func (op answerOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	s := op.s
	if s.done {
		return kont.Left[error, struct{}](s.end), true
	}
	if !s.started {
		return kont.Left[error, struct{}](error(errNotStarted)), true
	}
	s.ch.hs.put(op.value)
	s.ch.sendReady.release(l)
	return kont.Right[error, struct{}](struct{}{}), true
}

// observeOp interprets the state after valueReady, caching terminal outcomes.
type observeOp[Y, S, R any] struct {
	kont.Phantom[kont.Either[error, Y]]
	s      *TaskStream[Y, S, R]
	exited *UsageError
}

func (op observeOp[Y, S, R]) dispatchLoop(*Loop, *task) (kont.Resumed, bool) {
	s := op.s
	v, done, err := s.ch.hs.observe(op.exited)
	if done {
		s.done = true
		s.end = err
		return kont.Left[error, Y](err), true
	}
	return kont.Right[error, Y](v), true
}

// depositOp is the first half of Yield: Yielded(v) and signal valueReady.
type depositOp[Y, S, R any] struct {
	kont.Phantom[struct{}]
	c     *TaskContinuation[Y, S, R]
	value Y
}

func (op depositOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	op.c.mustOpen("Yield")
	op.c.ch.hs.deposit(op.value)
	op.c.ch.valueReady.release(l)
	return struct{}{}, true
}

// takeOp is the last step of Yield: read the consumer's answer.
type takeOp[Y, S, R any] struct {
	kont.Phantom[box[S]]
	c *TaskContinuation[Y, S, R]
}

func (op takeOp[Y, S, R]) dispatchLoop(*Loop, *task) (kont.Resumed, bool) {
	return box[S]{value: op.c.ch.hs.take()}, true
}

type returnOp[Y, S, R any] struct {
	kont.Phantom[struct{}]
	c     *TaskContinuation[Y, S, R]
	value R
}

func (op returnOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	op.c.mustOpen("Return")
	op.c.closed = true
	op.c.ch.hs.finish(op.value)
	op.c.ch.valueReady.release(l)
	return struct{}{}, true
}

type throwOp[Y, S, R any] struct {
	kont.Phantom[struct{}]
	c   *TaskContinuation[Y, S, R]
	err *ProducerError
}

func (op throwOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	op.c.mustOpen("Throw")
	op.c.closed = true
	op.err.Time = time.Now()
	op.c.ch.hs.fail(op.err)
	op.c.ch.valueReady.release(l)
	return struct{}{}, true
}

// exitOp runs after the producer computation completes. A producer that
// never terminated the stream wakes the consumer, which then observes a
// usage violation.
type exitOp[Y, S, R any] struct {
	kont.Phantom[struct{}]
	c *TaskContinuation[Y, S, R]
}

func (op exitOp[Y, S, R]) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	if op.c.closed {
		return struct{}{}, true
	}
	op.c.closed = true
	op.c.ch.valueReady.release(l)
	return struct{}{}, true
}
