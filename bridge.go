// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/kont"
)

// Reify converts a Cont-world task computation to Expr-world.
// The resulting Expr can be submitted with [Loop.GoExpr] or run with
// [ExecExpr] and [RunExpr].
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts an Expr-world task computation to Cont-world.
// The resulting Eff can be submitted with [Loop.Go] or run with [Exec]
// and [Run].
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
