// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
	"github.com/gammazero/deque"
)

// task is one computation scheduled on a Loop. Before its first step only
// expr is set; afterwards susp holds the pending suspension and resume the
// value it will be resumed with once runnable.
type task struct {
	id     uint32
	expr   kont.Expr[struct{}]
	susp   *kont.Suspension[struct{}]
	resume kont.Resumed
}

// taskInbox is the multi-producer single-consumer queue through which
// other goroutines hand tasks to the loop.
type taskInbox interface {
	Enqueue(elem **task) error
	Dequeue() (*task, error)
}

// loopDispatcher is the structural interface for effects a Loop handles.
// dispatchLoop runs on the loop goroutine. It returns (value, true) to
// resume t immediately, or (nil, false) when t was parked and will be
// resumed later through Loop.wake.
type loopDispatcher interface {
	dispatchLoop(l *Loop, t *task) (kont.Resumed, bool)
}

// Loop is a single-goroutine cooperative scheduler for effectful tasks.
//
// Tasks are [kont] computations. The loop evaluates each task one effect
// at a time: immediate effects resume the task at once, waiting effects
// park its suspension until another task or a timer wakes it.
// Only Go and GoExpr may be called from other goroutines.
type Loop struct {
	inbox   taskInbox
	runq    deque.Deque[*task]
	timers  timerHeap
	live    int
	ids     uint32
	running atomix.Uint32
	log     *slog.Logger
}

// NewLoop returns an idle loop.
func NewLoop(opts ...Option) *Loop {
	cfg := newLoopConfig(opts)
	return &Loop{
		inbox: lfq.NewMPSC[*task](cfg.inboxCapacity),
		log:   cfg.logger,
	}
}

// Go submits eff as a new task. It is safe to call from any goroutine,
// including while Run is executing; the task starts on the next Run
// iteration. Go backs off while the submission queue is full.
func (l *Loop) Go(eff kont.Eff[struct{}]) {
	l.GoExpr(kont.Reify(eff))
}

// GoExpr is Go for an Expr-world computation.
func (l *Loop) GoExpr(expr kont.Expr[struct{}]) {
	t := &task{expr: expr}
	var bo iox.Backoff
	for {
		err := l.inbox.Enqueue(&t)
		if err == nil {
			return
		}
		if !iox.IsWouldBlock(err) {
			panic(err)
		}
		bo.Wait()
	}
}

// Spawn is the effect operation for starting a task from inside a running
// task. The spawning task resumes immediately.
type Spawn struct {
	kont.Phantom[struct{}]
	Task kont.Expr[struct{}]
}

func (op Spawn) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	l.schedule(&task{expr: op.Task})
	return struct{}{}, true
}

// Run evaluates tasks until none is live and returns nil.
//
// Each iteration drains submitted tasks, fires due timers and steps one
// runnable task, so deadlines resolve while other tasks keep running.
// Run returns an error wrapping ErrStalled when every live task is parked
// and no timer is armed, and ctx.Err() as soon as ctx is done. Unfinished
// tasks stay queued or parked; a later Run continues them. Run must not be
// called concurrently with itself.
func (l *Loop) Run(ctx context.Context) error {
	if l.running.Add(1) != 1 {
		l.running.Add(^uint32(0))
		panic("handoff: Loop.Run called concurrently")
	}
	defer l.running.Add(^uint32(0))

	var bo iox.Backoff
	for {
		l.drain()
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(l.timers) > 0 {
			l.fire(time.Now())
		}
		if l.runq.Len() > 0 {
			l.step(l.runq.PopFront())
			bo.Reset()
			continue
		}
		if l.live == 0 {
			return nil
		}
		if len(l.timers) == 0 {
			l.log.Debug("handoff: loop stalled", "parked", l.live)
			return fmt.Errorf("%w: %d parked tasks", ErrStalled, l.live)
		}
		bo.Wait()
	}
}

// drain moves submitted tasks to the run queue.
func (l *Loop) drain() {
	for {
		t, err := l.inbox.Dequeue()
		if err != nil {
			return
		}
		l.schedule(t)
	}
}

func (l *Loop) schedule(t *task) {
	l.ids++
	t.id = l.ids
	l.live++
	l.runq.PushBack(t)
	l.log.Debug("handoff: task spawned", "task", t.id, "live", l.live)
}

// wake makes a parked task runnable with v as its resumption value.
func (l *Loop) wake(t *task, v kont.Resumed) {
	t.resume = v
	l.runq.PushBack(t)
}

// arm schedules w to time out at deadline.
func (l *Loop) arm(w *taskWaiter, deadline time.Time) {
	tm := &timer{deadline: deadline, w: w}
	w.timer = tm
	heap.Push(&l.timers, tm)
}

// disarm cancels a timer whose waiter was resolved by a release.
func (l *Loop) disarm(tm *timer) {
	if tm.index >= 0 {
		heap.Remove(&l.timers, tm.index)
	}
}

// fire expires every timer due at now, waking their tasks.
func (l *Loop) fire(now time.Time) {
	for len(l.timers) > 0 && !l.timers[0].deadline.After(now) {
		tm := heap.Pop(&l.timers).(*timer)
		w := tm.w
		w.timer = nil
		if w.expire() {
			l.log.Debug("handoff: wait timed out", "task", w.t.id)
			l.wake(w.t, false)
		}
	}
}

// timer is an armed deadline for one bounded wait.
type timer struct {
	deadline time.Time
	w        *taskWaiter
	index    int
}

// timerHeap orders armed timers by deadline.
type timerHeap []*timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	tm := x.(*timer)
	tm.index = len(*h)
	*h = append(*h, tm)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	tm := old[n-1]
	old[n-1] = nil
	tm.index = -1
	*h = old[:n-1]
	return tm
}
