// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"
)

var (
	// ErrEndOfStream reports that the producer returned. It is matched by
	// every [*EndError] through errors.Is.
	ErrEndOfStream = errors.New("handoff: end of stream")

	// ErrUsage reports a caller defect: Send before Next, a second Next,
	// or a producer body that exited without Return or Throw.
	ErrUsage = errors.New("handoff: usage violation")

	// ErrStalled is returned by [Loop.Run] when every live task is parked
	// and no timer can wake any of them.
	ErrStalled = errors.New("handoff: loop stalled")
)

// EndError is the end-of-stream signal. It carries the producer's return value.
type EndError[R any] struct {
	Value R
}

func (e *EndError[R]) Error() string {
	return fmt.Sprintf("%s (returned %v)", ErrEndOfStream.Error(), e.Value)
}

// Is reports whether target is ErrEndOfStream.
func (e *EndError[R]) Is(target error) bool {
	return target == ErrEndOfStream
}

// ReturnValue extracts the producer's return value from an end-of-stream
// error. It reports false for any other error, including end-of-stream
// errors of a different return type.
func ReturnValue[R any](err error) (R, bool) {
	var end *EndError[R]
	if errors.As(err, &end) {
		return end.Value, true
	}
	var zero R
	return zero, false
}

// UsageError describes a protocol violation by the caller.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return ErrUsage.Error() + ": " + e.Op + ": " + e.Reason
}

// Is reports whether target is ErrUsage.
func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

var (
	errAlreadyStarted = &UsageError{Op: "Next", Reason: "stream already started"}
	errNotStarted     = &UsageError{Op: "Send", Reason: "Next was never called"}
	errExitedOnNext   = &UsageError{Op: "Next", Reason: "producer exited without Yield, Return or Throw"}
	errExitedOnSend   = &UsageError{Op: "Send", Reason: "producer exited without Yield, Return or Throw"}
)

// ProducerError is a failure raised by the producer through Throw.
// It records where in the producer the failure was raised.
type ProducerError struct {
	Err    error
	Serial Serial
	Func   string
	File   string
	Line   int
	Time   time.Time
}

// newProducerError captures the provenance of the Throw call skip frames
// above its caller.
func newProducerError(err error, serial Serial, skip int) *ProducerError {
	pe := &ProducerError{Err: err, Serial: serial, Time: time.Now()}
	if pc, file, line, ok := runtime.Caller(skip + 1); ok {
		pe.File = file
		pe.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			pe.Func = fn.Name()
		}
	}
	return pe
}

func (e *ProducerError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("handoff: stream %d: producer failed: %v", e.Serial, e.Err)
	}
	return fmt.Sprintf("handoff: stream %d: producer failed at %s:%d: %v",
		e.Serial, filepath.Base(e.File), e.Line, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}
