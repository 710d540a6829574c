// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/kont"
)

// WaitThen takes a permit from s and then continues with next.
// Fuses Perform(Acquire{}) + Then.
func WaitThen[B any](s *TaskSema, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Acquire{Sema: s}), next)
}

// SignalThen releases a permit to s and then continues with next.
// Fuses Perform(Release{}) + Then.
func SignalThen[B any](s *TaskSema, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Release{Sema: s}), next)
}

// SpawnThen starts eff as a new task and continues with next.
// Fuses Perform(Spawn{}) + Then.
func SpawnThen[B any](eff kont.Eff[struct{}], next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Spawn{Task: kont.Reify(eff)}), next)
}

// YieldBind yields v and passes the consumer's answer to f.
// Fuses Yield + Bind.
func YieldBind[Y, S, R, B any](c *TaskContinuation[Y, S, R], v Y, f func(S) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(c.Yield(v), f)
}

// NextBind waits for the stream's first value and passes the result to f.
// Fuses Next + Bind.
func NextBind[Y, S, R, B any](s *TaskStream[Y, S, R], f func(kont.Either[error, Y]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(s.Next(), f)
}

// SendBind answers with v and passes the producer's next result to f.
// Fuses Send + Bind.
func SendBind[Y, S, R, B any](s *TaskStream[Y, S, R], v S, f func(kont.Either[error, Y]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(s.Send(v), f)
}
