package table

import (
	"github.com/palemoky/seka/internal/protocol"
)

// HandleAction 牌桌动作入口。非当前行动者的对局动作、令牌已失效
// 的迟到动作一律静默忽略；被处理的动作先作废回合令牌再生效。
func (t *Table) HandleAction(connID string, act protocol.PlayerActionPayload) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByConnLocked(connID)
	if p == nil {
		return
	}

	// 不依赖阶段、不消耗回合的动作
	switch act.Kind {
	case protocol.ActionLeave:
		t.removeLocked(p)
		t.bc.SendToConnection(connID, protocol.MsgLeftTable, nil)
		return

	case protocol.ActionSeeCards:
		if p.IsFolded || p.IsSpectator {
			return
		}
		if !p.HasSeen {
			p.HasSeen = true
			t.bc.SendToConnection(connID, protocol.MsgYourCards, protocol.YourCardsPayload{
				Cards: protocol.CardsToInfos(p.Hand),
			})
			t.broadcastStateLocked()
		}
		return
	}

	// 赢家抉择窗口只听赢家的
	if t.state == StateWinnerDecision {
		if p.Username != t.lastWinner {
			return
		}
		switch act.Kind {
		case protocol.ActionFlex:
			t.flexLocked(p)
		case protocol.ActionInitDoubleDown:
			stopTimer(&t.timers.decision)
			t.startVotingLocked(ModeDoubleDown)
		}
		return
	}

	if t.state == StateVoting {
		if act.Kind == protocol.ActionVote {
			t.processVoteLocked(p, act.Vote)
		}
		return
	}

	// 以下动作要求对局中且轮到本座位
	if t.state != StateActive || t.turnIndex >= len(t.players) || t.players[t.turnIndex] != p {
		return
	}

	// 动作被受理，先让回合闹钟失效
	t.turnToken = ""
	stopTimer(&t.timers.turn)

	switch act.Kind {
	case protocol.ActionFold:
		t.foldLocked(p, false)
	case protocol.ActionBet:
		t.betLocked(p, act.Amount)
	case protocol.ActionShowdown:
		t.showdownLocked(p)
	case protocol.ActionOpenPrevious:
		t.openPreviousLocked(p)
	default:
		// 未知动作不该吃掉回合
		t.startTurnTimerLocked()
	}
}

// flexLocked 赢家公开亮牌，随后结算底池并开新的一局
func (t *Table) flexLocked(w *Player) {
	t.bc.BroadcastToTable(t.ID, protocol.MsgShowdownReveal, protocol.ShowdownRevealPayload{
		Username: w.Username,
		Cards:    protocol.CardsToInfos(w.Hand),
		Score:    w.score,
	})
	stopTimer(&t.timers.decision)
	t.creditCarriedPotLocked(w)

	t.afterHand(t.t.FlexDelay, func() {
		if t.state != StateWinnerDecision {
			return
		}
		t.startGameLocked(ModeNormal)
	})
}
