// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/handoff"
	"code.hybscloud.com/kont"
	"golang.org/x/sync/errgroup"
)

func TestLoopRunEmpty(t *testing.T) {
	l := handoff.NewLoop()
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestLoopSemaphoreHandOff(t *testing.T) {
	l := handoff.NewLoop()
	s := handoff.NewTaskSema(0)
	var order []string
	l.Go(handoff.WaitThen(s, kont.Map(kont.Pure("waiter"), func(name string) struct{} {
		order = append(order, name)
		return struct{}{}
	})))
	l.Go(handoff.SignalThen(s, kont.Map(kont.Pure("signaler"), func(name string) struct{} {
		order = append(order, name)
		return struct{}{}
	})))

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Signal does not yield: the signaler finishes before the waiter resumes.
	if strings.Join(order, ",") != "signaler,waiter" {
		t.Fatalf("order: got %v, want [signaler waiter]", order)
	}
	if s.Permits() != 0 {
		t.Fatalf("Permits: got %d, want 0", s.Permits())
	}
}

func TestLoopStalled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := handoff.NewLoop(handoff.WithLogger(logger))
	s := handoff.NewTaskSema(0)
	resumed := false
	l.Go(kont.Then(s.Wait(), kont.Map(kont.Pure(true), func(b bool) struct{} {
		resumed = b
		return struct{}{}
	})))

	err := l.Run(context.Background())
	if !errors.Is(err, handoff.ErrStalled) {
		t.Fatalf("Run: got %v, want stalled", err)
	}
	if !strings.Contains(buf.String(), "loop stalled") {
		t.Fatalf("log: got %q, want a stall record", buf.String())
	}

	// A parked task resumes on a later Run once released.
	l.Go(s.Signal())
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !resumed {
		t.Fatalf("parked task was not resumed")
	}
}

func TestLoopContextCancel(t *testing.T) {
	l := handoff.NewLoop()
	s := handoff.NewTaskSema(0)
	l.Go(kont.Then(s.WaitTimeout(time.Hour), done()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: got %v, want deadline exceeded", err)
	}
}

func TestLoopSpawn(t *testing.T) {
	s := handoff.NewTaskSema(0)
	var got []int
	child := kont.Then(kont.Map(kont.Pure(1), func(v int) struct{} {
		got = append(got, v)
		return struct{}{}
	}), s.Signal())
	root := handoff.SpawnThen(child, handoff.WaitThen(s, kont.Map(kont.Pure(2), func(v int) struct{} {
		got = append(got, v)
		return struct{}{}
	})))

	if _, err := handoff.Exec(context.Background(), root); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func TestLoopSubmitFromGoroutines(t *testing.T) {
	skipRace(t)
	const (
		workers = 4
		perG    = 8
	)
	l := handoff.NewLoop()
	count := 0
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for range perG {
				l.Go(kont.Map(kont.Pure(1), func(n int) struct{} {
					count += n
					return struct{}{}
				}))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != workers*perG {
		t.Fatalf("count: got %d, want %d", count, workers*perG)
	}
}

func TestLoopSubmitWhileRunning(t *testing.T) {
	skipRace(t)
	l := handoff.NewLoop(handoff.WithInboxCapacity(2))
	s := handoff.NewTaskSema(0)
	// The root waits long enough for the other goroutine to submit the
	// releasing task through the inbox.
	got := false
	l.Go(kont.Bind(s.WaitTimeout(10*time.Second), func(ok bool) kont.Eff[struct{}] {
		got = ok
		return done()
	}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Go(s.Signal())
	}()
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !got {
		t.Fatalf("WaitTimeout: got false, want the submitted release")
	}
}

type foreignOp struct {
	kont.Phantom[int]
}

func TestLoopUnhandledEffectPanics(t *testing.T) {
	l := handoff.NewLoop()
	l.Go(kont.Then(kont.Perform(foreignOp{}), done()))

	defer func() {
		r := recover()
		msg, _ := r.(string)
		if !strings.Contains(msg, "unhandled effect") {
			t.Fatalf("recover: got %v, want unhandled effect panic", r)
		}
	}()
	l.Run(context.Background())
	t.Fatalf("Run returned without panicking")
}

func TestLoopReentrantRunPanics(t *testing.T) {
	l := handoff.NewLoop()
	l.Go(kont.Bind(kont.Pure(struct{}{}), func(struct{}) kont.Eff[struct{}] {
		l.Run(context.Background())
		return done()
	}))

	defer func() {
		r := recover()
		msg, _ := r.(string)
		if !strings.Contains(msg, "called concurrently") {
			t.Fatalf("recover: got %v, want concurrent Run panic", r)
		}
	}()
	l.Run(context.Background())
	t.Fatalf("Run returned without panicking")
}

func TestRunExprInterleaves(t *testing.T) {
	s := handoff.NewTaskSema(0)
	a := handoff.ExprWaitThen(s, kont.ExprReturn("a"))
	b := handoff.ExprSignalThen(s, kont.ExprReturn(7))

	ra, rb, err := handoff.RunExpr(context.Background(), a, b)
	if err != nil {
		t.Fatalf("RunExpr: %v", err)
	}
	if ra != "a" || rb != 7 {
		t.Fatalf("RunExpr: got (%q, %d), want (a, 7)", ra, rb)
	}
}

func TestExecExprSpawn(t *testing.T) {
	s := handoff.NewTaskSema(0)
	child := handoff.ExprSignalThen(s, kont.ExprReturn(struct{}{}))
	root := handoff.ExprSpawnThen(child, handoff.ExprWaitThen(s, kont.ExprReturn(42)))

	got, err := handoff.ExecExpr(context.Background(), root)
	if err != nil {
		t.Fatalf("ExecExpr: %v", err)
	}
	if got != 42 {
		t.Fatalf("ExecExpr: got %d, want 42", got)
	}
}

func TestReifyReflect(t *testing.T) {
	s := handoff.NewTaskSema(1)
	m := handoff.Reflect(handoff.Reify(handoff.WaitThen(s, kont.Pure("ok"))))

	got, err := handoff.Exec(context.Background(), m)
	if err != nil || got != "ok" {
		t.Fatalf("Exec: got (%q, %v), want ok", got, err)
	}
	if s.Permits() != 0 {
		t.Fatalf("Permits: got %d, want 0", s.Permits())
	}
}

// pingPong returns two tasks that hand a permit back and forth over a and
// b until stop reports true or limit rounds have passed. rounds counts
// completed exchanges.
func pingPong(stop func() bool, limit int, rounds *int) (ping, pong kont.Eff[struct{}]) {
	a, b := handoff.NewTaskSema(0), handoff.NewTaskSema(0)
	finished := false
	ping = handoff.Iterate(0, func(i int) kont.Eff[kont.Either[int, struct{}]] {
		*rounds = i
		if i == limit || stop() {
			finished = true
			return handoff.SignalThen(b, kont.Pure(kont.Right[int](struct{}{})))
		}
		return handoff.SignalThen(b, handoff.WaitThen(a, kont.Pure(kont.Left[int, struct{}](i+1))))
	})
	pong = handoff.Iterate(struct{}{}, func(struct{}) kont.Eff[kont.Either[struct{}, struct{}]] {
		return handoff.WaitThen(b, kont.Bind(kont.Pure(struct{}{}), func(struct{}) kont.Eff[kont.Either[struct{}, struct{}]] {
			if finished {
				return kont.Pure(kont.Right[struct{}](struct{}{}))
			}
			return handoff.SignalThen(a, kont.Pure(kont.Left[struct{}, struct{}](struct{}{})))
		}))
	})
	return ping, pong
}

func TestLoopTimerFiresWhileTasksRunnable(t *testing.T) {
	const limit = 2_000_000
	gate := handoff.NewTaskSema(0)
	var expired bool
	var expiredAfter time.Duration
	start := time.Now()
	waiter := kont.Bind(gate.WaitTimeout(time.Millisecond), func(ok bool) kont.Eff[struct{}] {
		expired = !ok
		expiredAfter = time.Since(start)
		return done()
	})
	rounds := 0
	ping, pong := pingPong(func() bool { return expired }, limit, &rounds)

	l := handoff.NewLoop()
	l.Go(waiter)
	l.Go(ping)
	l.Go(pong)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !expired {
		t.Fatalf("timed wait did not expire")
	}
	if rounds == limit {
		t.Fatalf("timer fired only after %d rounds of runnable work", rounds)
	}
	if expiredAfter > 500*time.Millisecond {
		t.Fatalf("1ms timeout resolved after %v", expiredAfter)
	}
}

func TestLoopContextCancelWhileTasksRunnable(t *testing.T) {
	const limit = 2_000_000
	rounds := 0
	ping, pong := pingPong(func() bool { return false }, limit, &rounds)

	l := handoff.NewLoop()
	l.Go(ping)
	l.Go(pong)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: got %v after %d rounds, want deadline exceeded", err, rounds)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Run noticed cancellation after %v", elapsed)
	}
	if rounds == limit {
		t.Fatalf("Run ran every round despite cancellation")
	}
}
