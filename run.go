// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"context"

	"code.hybscloud.com/kont"
)

// Run runs a and b as two tasks of a new [Loop] and returns both results.
// It is the usual way to drive a producer and consumer created with
// [NewTaskPair]. Both tasks are interleaved on the calling goroutine; no
// goroutine is spawned.
//
// Run returns an error wrapping ErrStalled when both sides park forever.
func Run[A, B any](ctx context.Context, a kont.Eff[A], b kont.Eff[B], opts ...Option) (A, B, error) {
	return RunExpr(ctx, kont.Reify(a), kont.Reify(b), opts...)
}

// RunExpr is Run for Expr-world computations.
func RunExpr[A, B any](ctx context.Context, a kont.Expr[A], b kont.Expr[B], opts ...Option) (A, B, error) {
	var resultA A
	var resultB B
	l := NewLoop(opts...)
	l.GoExpr(capture(a, &resultA))
	l.GoExpr(capture(b, &resultB))
	err := l.Run(ctx)
	return resultA, resultB, err
}
