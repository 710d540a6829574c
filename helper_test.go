// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff_test

import (
	"code.hybscloud.com/handoff"
	"code.hybscloud.com/kont"
)

// yieldAll returns a cooperative producer that yields each of vals in
// order, records the answers it receives, and returns ret.
func yieldAll[Y, S, R any](vals []Y, ret R, answers *[]S) func(*handoff.TaskContinuation[Y, S, R]) kont.Eff[struct{}] {
	return func(c *handoff.TaskContinuation[Y, S, R]) kont.Eff[struct{}] {
		return handoff.Iterate(0, func(i int) kont.Eff[kont.Either[int, struct{}]] {
			if i == len(vals) {
				return kont.Then(c.Return(ret), kont.Pure(kont.Right[int](struct{}{})))
			}
			return handoff.YieldBind(c, vals[i], func(a S) kont.Eff[kont.Either[int, struct{}]] {
				*answers = append(*answers, a)
				return kont.Pure(kont.Left[int, struct{}](i + 1))
			})
		})
	}
}

// blockingYieldAll is yieldAll for the blocking variant.
func blockingYieldAll[Y, S, R any](vals []Y, ret R, answers *[]S) func(*handoff.Continuation[Y, S, R]) {
	return func(c *handoff.Continuation[Y, S, R]) {
		for _, v := range vals {
			*answers = append(*answers, c.Yield(v))
		}
		c.Return(ret)
	}
}

// done is the unit computation.
func done() kont.Eff[struct{}] {
	return kont.Pure(struct{}{})
}
