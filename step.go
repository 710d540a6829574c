// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"code.hybscloud.com/kont"
)

// step runs t until it parks or completes.
func (l *Loop) step(t *task) {
	var susp *kont.Suspension[struct{}]
	if t.susp == nil {
		_, susp = kont.StepExpr(t.expr)
	} else {
		pending, v := t.susp, t.resume
		t.susp, t.resume = nil, nil
		_, susp = pending.Resume(v)
	}
	for susp != nil {
		op, ok := susp.Op().(loopDispatcher)
		if !ok {
			panic("handoff: unhandled effect in Loop")
		}
		v, ready := op.dispatchLoop(l, t)
		if !ready {
			t.susp = susp
			return
		}
		_, susp = susp.Resume(v)
	}
	l.live--
	l.log.Debug("handoff: task done", "task", t.id, "live", l.live)
}
