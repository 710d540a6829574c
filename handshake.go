// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

// Phase names the protocol state of a stream.
type Phase uint8

const (
	// PhaseIdle: no value produced yet.
	PhaseIdle Phase = iota
	// PhaseYielded: the producer deposited a value for the consumer.
	PhaseYielded
	// PhaseWaitingForSend: the consumer took the value; the producer waits for an answer.
	PhaseWaitingForSend
	// PhaseSent: the consumer deposited a value for the producer.
	PhaseSent
	// PhaseFinished: the producer returned. Terminal.
	PhaseFinished
	// PhaseErrored: the producer threw. Terminal.
	PhaseErrored
)

var phaseNames = [...]string{
	PhaseIdle:           "idle",
	PhaseYielded:        "yielded",
	PhaseWaitingForSend: "waiting-for-send",
	PhaseSent:           "sent",
	PhaseFinished:       "finished",
	PhaseErrored:        "errored",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Terminal reports whether p is PhaseFinished or PhaseErrored.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseErrored
}

// state is the sealed sum of handshake states. Payloads are reachable only
// through a type switch on the concrete variant.
type state interface {
	phase() Phase
}

type idle struct{}

type yielded[Y any] struct{ value Y }

type waitingForSend struct{}

type sent[S any] struct{ value S }

type finished[R any] struct{ value R }

type errored struct{ err *ProducerError }

func (idle) phase() Phase           { return PhaseIdle }
func (yielded[Y]) phase() Phase     { return PhaseYielded }
func (waitingForSend) phase() Phase { return PhaseWaitingForSend }
func (sent[S]) phase() Phase        { return PhaseSent }
func (finished[R]) phase() Phase    { return PhaseFinished }
func (errored) phase() Phase        { return PhaseErrored }

// handshake is the state machine shared by a producer and a consumer.
// It holds no synchronization of its own: each variant orders access with
// its semaphore pair, and every method here is one atomic transition from
// the caller's point of view.
type handshake[Y, S, R any] struct {
	serial Serial
	st     state
}

func newHandshake[Y, S, R any]() *handshake[Y, S, R] {
	return &handshake[Y, S, R]{serial: nextSerial(), st: idle{}}
}

func (h *handshake[Y, S, R]) phase() Phase {
	return h.st.phase()
}

func (h *handshake[Y, S, R]) terminal() bool {
	return h.st.phase().Terminal()
}

// deposit moves to Yielded(v). Panics when the channel is terminal.
func (h *handshake[Y, S, R]) deposit(v Y) {
	if h.terminal() {
		panic("handoff: Yield after stream termination")
	}
	h.st = yielded[Y]{value: v}
}

// finish moves to Finished(r). Panics when the channel is terminal.
func (h *handshake[Y, S, R]) finish(r R) {
	if h.terminal() {
		panic("handoff: Return after stream termination")
	}
	h.st = finished[R]{value: r}
}

// fail moves to Errored(err). Panics when the channel is terminal.
func (h *handshake[Y, S, R]) fail(err *ProducerError) {
	if h.terminal() {
		panic("handoff: Throw after stream termination")
	}
	h.st = errored{err: err}
}

// put records the consumer's answer.
func (h *handshake[Y, S, R]) put(v S) {
	h.st = sent[S]{value: v}
}

// take returns the consumer's answer to the producer. The zero value is
// returned when the producer was resumed without an answer.
func (h *handshake[Y, S, R]) take() S {
	if s, ok := h.st.(sent[S]); ok {
		return s.value
	}
	var zero S
	return zero
}

// observe interprets the state the consumer finds after valueReady fires.
// Yielded moves to WaitingForSend and returns the value. Any terminal or
// unexpected state is terminal: done is true and err describes it. A
// producer that exited without terminating the stream is reported as
// exited, which names the consumer call that found it.
func (h *handshake[Y, S, R]) observe(exited *UsageError) (v Y, done bool, err error) {
	switch st := h.st.(type) {
	case yielded[Y]:
		h.st = waitingForSend{}
		return st.value, false, nil
	case finished[R]:
		return v, true, &EndError[R]{Value: st.value}
	case errored:
		return v, true, st.err
	default:
		return v, true, exited
	}
}
