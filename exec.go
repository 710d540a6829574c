// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"context"

	"code.hybscloud.com/kont"
)

// Exec runs a Cont-world computation as the root task of a new [Loop] and
// returns its result once every task it spawned has completed.
// The error is that of [Loop.Run]; the result is meaningful only when it
// is nil.
func Exec[R any](ctx context.Context, m kont.Eff[R], opts ...Option) (R, error) {
	return ExecExpr(ctx, kont.Reify(m), opts...)
}

// ExecExpr is Exec for an Expr-world computation.
func ExecExpr[R any](ctx context.Context, m kont.Expr[R], opts ...Option) (R, error) {
	var out R
	l := NewLoop(opts...)
	l.GoExpr(capture(m, &out))
	err := l.Run(ctx)
	return out, err
}

// capture adapts m to a task that stores its result in out.
func capture[R any](m kont.Expr[R], out *R) kont.Expr[struct{}] {
	return kont.Reify(kont.Bind(kont.Reflect(m), func(r R) kont.Eff[struct{}] {
		*out = r
		return kont.Pure(struct{}{})
	}))
}
