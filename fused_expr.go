// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/kont"
)

// exprReturnFrame is pre-boxed to avoid a heap escape per fused constructor.
var exprReturnFrame kont.Frame = kont.ReturnFrame{}

// identityResume is the identity resume function for EffectFrame construction.
func identityResume(v kont.Erased) kont.Erased { return v }

// exprThen builds EffectFrame(op) followed by next.
func exprThen[B any](op kont.Erased, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprWaitThen takes a permit from s and then continues with next.
// Fuses ExprPerform(Acquire{}) + ExprThen.
func ExprWaitThen[B any](s *TaskSema, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Acquire{Sema: s}, next)
}

// ExprSignalThen releases a permit to s and then continues with next.
// Fuses ExprPerform(Release{}) + ExprThen.
func ExprSignalThen[B any](s *TaskSema, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Release{Sema: s}, next)
}

// ExprSpawnThen starts t as a new task and then continues with next.
// Fuses ExprPerform(Spawn{}) + ExprThen.
func ExprSpawnThen[B any](t kont.Expr[struct{}], next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Spawn{Task: t}, next)
}

func waitTimeoutBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(bool) kont.Expr[B])
	result := f(current.(bool))
	return kont.Erased(result.Value), result.Frame
}

// ExprWaitTimeoutBind waits on s for at most the op's timeout and passes
// whether a permit was taken to f.
// Fuses ExprPerform(AcquireTimeout{}) + ExprBind.
func ExprWaitTimeoutBind[B any](op AcquireTimeout, f func(bool) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = waitTimeoutBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}
