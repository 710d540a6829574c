// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"time"

	"code.hybscloud.com/kont"
	"github.com/gammazero/deque"
)

// TaskSema is a counting semaphore for tasks running on a [Loop].
//
// Waiting parks the task's suspension in the semaphore's queue instead of
// blocking a goroutine. All operations are effects dispatched on the loop
// goroutine, so a TaskSema must only be used by tasks of a single Loop.
// Wake order among several parked tasks is unspecified.
type TaskSema struct {
	permits int
	waiters deque.Deque[*taskWaiter]
}

// taskWaiter is one parked task. done records that the waiter has been
// resolved, by a release or by its timer.
type taskWaiter struct {
	t     *task
	sema  *TaskSema
	timer *timer
	timed bool
	done  bool
}

// NewTaskSema returns a semaphore holding permits initial permits.
func NewTaskSema(permits int) *TaskSema {
	if permits < 0 {
		panic("handoff: negative semaphore permits")
	}
	return &TaskSema{permits: permits}
}

// Permits returns the number of permits available. Call it from a task or
// while the loop is not running.
func (s *TaskSema) Permits() int {
	return s.permits
}

// Wait takes a permit, parking the task until one is available.
func (s *TaskSema) Wait() kont.Eff[struct{}] {
	return kont.Perform(Acquire{Sema: s})
}

// WaitTimeout is Wait bounded by d. It resumes with true when a permit was
// taken and false when d elapsed first.
func (s *TaskSema) WaitTimeout(d time.Duration) kont.Eff[bool] {
	return kont.Perform(AcquireTimeout{Sema: s, Timeout: d})
}

// Signal releases a permit, waking one parked task if any.
// The signaling task continues without yielding.
func (s *TaskSema) Signal() kont.Eff[struct{}] {
	return kont.Perform(Release{Sema: s})
}

// Acquire is the effect operation for TaskSema.Wait.
type Acquire struct {
	kont.Phantom[struct{}]
	Sema *TaskSema
}

func (op Acquire) dispatchLoop(l *Loop, t *task) (kont.Resumed, bool) {
	if op.Sema.acquire(l, t, false, 0) {
		return struct{}{}, true
	}
	return nil, false
}

// AcquireTimeout is the effect operation for TaskSema.WaitTimeout.
type AcquireTimeout struct {
	kont.Phantom[bool]
	Sema    *TaskSema
	Timeout time.Duration
}

func (op AcquireTimeout) dispatchLoop(l *Loop, t *task) (kont.Resumed, bool) {
	if op.Sema.acquire(l, t, true, op.Timeout) {
		return true, true
	}
	if op.Timeout <= 0 {
		return false, true
	}
	return nil, false
}

// Release is the effect operation for TaskSema.Signal.
type Release struct {
	kont.Phantom[struct{}]
	Sema *TaskSema
}

func (op Release) dispatchLoop(l *Loop, _ *task) (kont.Resumed, bool) {
	op.Sema.release(l)
	return struct{}{}, true
}

// acquire takes a permit and reports true, or parks t and reports false.
// A timed wait with a non-positive timeout never parks.
func (s *TaskSema) acquire(l *Loop, t *task, timed bool, d time.Duration) bool {
	if s.permits > 0 {
		s.permits--
		return true
	}
	if timed && d <= 0 {
		return false
	}
	w := &taskWaiter{t: t, sema: s, timed: timed}
	s.waiters.PushBack(w)
	if timed {
		l.arm(w, time.Now().Add(d))
	}
	return false
}

// release hands the permit to the first parked task, or keeps it.
func (s *TaskSema) release(l *Loop) {
	if s.waiters.Len() == 0 {
		s.permits++
		return
	}
	w := s.waiters.PopFront()
	w.done = true
	if w.timer != nil {
		l.disarm(w.timer)
		w.timer = nil
	}
	if w.timed {
		l.wake(w.t, true)
		return
	}
	l.wake(w.t, struct{}{})
}

// expire resolves w by timeout. It reports false when a release already
// resolved it.
func (w *taskWaiter) expire() bool {
	if w.done {
		return false
	}
	w.done = true
	s := w.sema
	if i := s.waiters.Index(func(x *taskWaiter) bool { return x == w }); i >= 0 {
		s.waiters.Remove(i)
	}
	return true
}
