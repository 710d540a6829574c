// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"iter"
)

// Forward is a forward-only sequence. Next returns values until the
// sequence ends; Err reports why it ended when that was a failure.
// A Forward serves one consumer.
type Forward[T any] struct {
	pull func() (T, bool)
	errf func() error
	done bool
}

// Next returns the next value, or false once the sequence has ended.
// After the first false every call returns false.
func (f *Forward[T]) Next() (T, bool) {
	if f.done {
		var zero T
		return zero, false
	}
	v, ok := f.pull()
	if !ok {
		f.done = true
	}
	return v, ok
}

// Err returns the failure that ended the sequence, if any.
func (f *Forward[T]) Err() error {
	if f.errf == nil {
		return nil
	}
	return f.errf()
}

// All returns an iterator over the remaining values.
func (f *Forward[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := f.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Unfold returns a sequence that calls next until it reports false.
// next runs on the consumer's goroutine; no producer goroutine is started.
func Unfold[T any](next func() (T, bool)) *Forward[T] {
	return &Forward[T]{pull: next}
}

// forwardPhase is the protocol state of a forward-only channel.
type forwardPhase uint8

const (
	forwardIdle forwardPhase = iota
	forwardYielded
	forwardFinished
)

// forwardChannel is the one-way handshake: the producer deposits a value
// and signals valueReady; the consumer takes it and, on its next call,
// signals resumeProducer.
type forwardChannel[T any] struct {
	phase          forwardPhase
	value          T
	err            error
	valueReady     Sema
	resumeProducer Sema
}

// Yielder is the producer side of a [Generate] sequence.
// It must only be used from the producer's goroutine.
type Yielder[T any] struct {
	ch     *forwardChannel[T]
	closed bool
}

// Generate returns a sequence produced by producer on a dedicated
// goroutine, started by the first call to Next. Returning from producer
// ends the sequence.
//
// A consumer that stops calling Next before the end leaves the producer
// parked in Yield.
func Generate[T any](producer func(*Yielder[T])) *Forward[T] {
	ch := &forwardChannel[T]{}
	y := &Yielder[T]{ch: ch}
	started := false
	return &Forward[T]{
		pull: func() (T, bool) {
			if !started {
				started = true
				go func() {
					producer(y)
					if !y.closed {
						y.Finish()
					}
				}()
			} else {
				ch.resumeProducer.Signal()
			}
			ch.valueReady.Wait()
			if ch.phase == forwardFinished {
				var zero T
				return zero, false
			}
			return ch.value, true
		},
		// The producer writes err only while the consumer is inside Next.
		errf: func() error { return ch.err },
	}
}

// Yield hands v to the consumer and parks until the consumer asks for the
// next value. Yield after Finish or Fail panics.
func (y *Yielder[T]) Yield(v T) {
	y.mustOpen("Yield")
	y.ch.value = v
	y.ch.phase = forwardYielded
	y.ch.valueReady.Signal()
	y.ch.resumeProducer.Wait()
}

// Finish ends the sequence.
func (y *Yielder[T]) Finish() {
	y.mustOpen("Finish")
	y.closed = true
	var zero T
	y.ch.value = zero
	y.ch.phase = forwardFinished
	y.ch.valueReady.Signal()
}

// Fail ends the sequence with err, reported by [Forward.Err].
func (y *Yielder[T]) Fail(err error) {
	y.mustOpen("Fail")
	y.ch.err = err
	y.Finish()
}

func (y *Yielder[T]) mustOpen(op string) {
	if y.closed {
		panic("handoff: " + op + " after sequence end")
	}
}

// FromStream adapts a stream that needs no answers into a forward-only
// sequence. The stream's return value is delivered as the final element.
// A producer failure or usage violation ends the sequence and is
// reported by [Forward.Err].
func FromStream[T any](s *Stream[T, struct{}, T]) *Forward[T] {
	var (
		begun    bool
		returned bool
		err      error
	)
	return &Forward[T]{
		pull: func() (T, bool) {
			var zero T
			if returned {
				return zero, false
			}
			var (
				v T
				e error
			)
			if !begun {
				begun = true
				v, e = s.Next()
			} else {
				v, e = s.Send(struct{}{})
			}
			if e == nil {
				return v, true
			}
			if r, ok := ReturnValue[T](e); ok {
				returned = true
				return r, true
			}
			err = e
			return zero, false
		},
		errf: func() error { return err },
	}
}
