package table

import (
	"time"

	"github.com/google/uuid"
)

// 计时器纪律：每个阶段至多一个有效计时器；停掉已触发的计时器
// 是 no-op，所以真正的防重入靠令牌/序号比对，而不是 Stop 的返回值。

func stopTimer(slot **time.Timer) {
	if *slot != nil {
		(*slot).Stop()
		*slot = nil
	}
}

func (t *Table) stopAllTimersLocked() {
	stopTimer(&t.timers.start)
	stopTimer(&t.timers.turn)
	stopTimer(&t.timers.vote)
	stopTimer(&t.timers.decision)
	t.turnToken = ""
}

// startTurnTimerLocked 给当前行动者上闹钟。令牌在这里生成，
// 任何被处理的动作会先把 turnToken 清空，使旧闹钟失效
func (t *Table) startTurnTimerLocked() {
	stopTimer(&t.timers.turn)

	if t.turnIndex < 0 || t.turnIndex >= len(t.players) {
		return
	}
	cur := t.players[t.turnIndex]

	token := uuid.NewString()
	t.turnToken = token
	t.timers.turn = time.AfterFunc(t.t.TurnTimeout, func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		// 闹钟响时已有动作被处理过，作废
		if t.turnToken != token {
			return
		}
		t.turnToken = ""
		t.foldLocked(cur, true)
	})
}

// afterHand 安排一个只在当前这一局内有效的延迟回调；
// 新的一局开始或回到等待态后触发视为被取代
func (t *Table) afterHand(d time.Duration, f func()) {
	seq := t.handSeq
	time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.handSeq != seq {
			return
		}
		f()
	})
}
