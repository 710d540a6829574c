// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package handoff provides bidirectional generators: a producer yields
// values to a consumer, and the consumer answers each yield with a value
// of its own.
//
// Producer and consumer meet on a channel built from a small handshake
// state machine and two counting semaphores. Exactly one side runs at a
// time; control passes across the channel at every Yield and Send.
//
// # Architecture
//
//   - Blocking: [New] runs the producer on its own goroutine, started by the first [Stream.Next]. Hand-off uses [Sema].
//   - Cooperative: [NewTaskStream] runs the producer as a task of a [Loop], a single-goroutine scheduler for [code.hybscloud.com/kont] computations. Hand-off uses [TaskSema], which parks suspensions instead of goroutines.
//   - Forward-only: [Generate], [Unfold] and [FromStream] build a [Forward] sequence, with [Map], [Filter], [Take], [Collect], [Reduce] and [Merge] on top.
//   - Errors: the end of a stream is an [*EndError] carrying the return value and matching [ErrEndOfStream]. Producer failures are [*ProducerError] with the location of Throw. Caller defects are [*UsageError] matching [ErrUsage].
//
// # Protocol
//
// Next is the only legal first call and is called once; Send answers the
// pending yield and returns the next one. Once the producer returns or
// throws, every later call replays the same terminal error.
//
// # Cooperative API
//
//   - Operations: [Acquire], [AcquireTimeout], [Release] and [Spawn] are the effects a [Loop] handles.
//   - Cont-world: [WaitThen], [SignalThen], [SpawnThen], [YieldBind], [NextBind], [SendBind], [Iterate] and [Drive].
//   - Expr-world: [ExprWaitThen], [ExprSignalThen], [ExprSpawnThen] and [ExprWaitTimeoutBind]. Bridge via [Reify] and [Reflect].
//   - Running: [Loop.Run] for long-lived loops, [Exec] and [Run] for one-shot evaluation.
//
// # Example
//
//	s := handoff.New(func(c *handoff.Continuation[int, int, string]) {
//		total := 0
//		for i := 1; i <= 3; i++ {
//			total += c.Yield(i)
//		}
//		c.Return(fmt.Sprint(total))
//	})
//	v, err := s.Next()
//	for err == nil {
//		v, err = s.Send(v * 10)
//	}
//	r, _ := handoff.ReturnValue[string](err) // "60"
package handoff
