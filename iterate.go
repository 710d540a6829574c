// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/kont"
)

// Iterate runs a recursive computation.
// step returns Left(nextState) to continue or Right(result) to finish.
func Iterate[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Iterate(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// Drained is the outcome of [Drive]: the values received in order and the
// error that ended the stream.
type Drained[Y any] struct {
	Values []Y
	Err    error
}

// driveState is the loop state of Drive.
type driveState[Y any] struct {
	values []Y
	last   kont.Either[error, Y]
}

// Drive pulls every value from s, answering each yield with answer, and
// completes with everything received. A clean end leaves an [*EndError]
// in Err; use [ReturnValue] to read the return value.
func Drive[Y, S, R any](s *TaskStream[Y, S, R], answer func(Y) S) kont.Eff[Drained[Y]] {
	return kont.Bind(s.Next(), func(first kont.Either[error, Y]) kont.Eff[Drained[Y]] {
		return Iterate(driveState[Y]{last: first}, func(a driveState[Y]) kont.Eff[kont.Either[driveState[Y], Drained[Y]]] {
			if err, ok := a.last.GetLeft(); ok {
				return kont.Pure(kont.Right[driveState[Y]](Drained[Y]{Values: a.values, Err: err}))
			}
			v, _ := a.last.GetRight()
			a.values = append(a.values, v)
			return kont.Bind(s.Send(answer(v)), func(e kont.Either[error, Y]) kont.Eff[kont.Either[driveState[Y], Drained[Y]]] {
				return kont.Pure(kont.Left[driveState[Y], Drained[Y]](driveState[Y]{values: a.values, last: e}))
			})
		})
	})
}
