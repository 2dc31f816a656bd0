package table

import (
	"log"
	"slices"
	"time"

	"github.com/palemoky/seka/internal/game/deck"
	"github.com/palemoky/seka/internal/game/rule"
	"github.com/palemoky/seka/internal/protocol"
)

// startGameLocked 开一局新牌。NORMAL 模式收底注并让所有合格的
// 在线玩家入局；加注模式只让投票确认过的玩家入局并继承结转底池
func (t *Table) startGameLocked(mode Mode) {
	stopTimer(&t.timers.turn)
	stopTimer(&t.timers.vote)
	stopTimer(&t.timers.decision)
	t.turnToken = ""
	t.handSeq++

	t.state = StateActive
	t.mode = mode
	t.voteMode = ""
	t.deck = deck.New()

	// 结转底池（加注局本金，或流局后折返的入场费）一律带入新局
	t.pot = t.carriedPot
	t.carriedPot = 0
	t.currentBet = t.BaseStake
	t.lastBetBlind = true

	for _, p := range t.players {
		p.resetForHand()

		if p.IsOnline && p.Chips >= t.BaseStake {
			if mode == ModeNormal {
				p.IsSpectator = false
			} else {
				p.IsSpectator = !t.eligible[p.Username]
			}
		} else {
			p.IsSpectator = true
		}
	}

	active := t.activePlayersLocked()
	if len(active) < 2 {
		t.resetToWaitingLocked()
		return
	}

	// 确认成局后才收底注
	if mode == ModeNormal {
		for _, p := range active {
			p.Chips -= t.BaseStake
			t.pot += t.BaseStake
		}
	}

	// 庄家移到上任庄家的下一个座位，首个行动者再隔一个座位，
	// 都在参与者子集上环形计算
	dIdx := slices.IndexFunc(active, func(p *Player) bool { return p.Username == t.dealer })
	if dIdx == -1 {
		dIdx = 0
	}
	t.dealer = active[(dIdx+1)%len(active)].Username
	first := active[(dIdx+2)%len(active)]
	t.turnIndex = slices.Index(t.players, first)

	// 按座位顺序一人一张，发三轮
	for round := 0; round < 3; round++ {
		for _, p := range active {
			cards, err := t.deck.Deal(1)
			if err != nil {
				// 21 张牌最多服务 7 人，这里不可能发空
				log.Printf("[table %s] 发牌失败: %v", t.ID, err)
				t.resetToWaitingLocked()
				return
			}
			p.Hand = append(p.Hand, cards[0])
		}
	}
	// 发牌即算分，摊牌前不出进程
	for _, p := range active {
		p.score = rule.Score(p.Hand)
	}

	log.Printf("[table %s] 新局开始: mode=%s 参与=%d 底池=%d", t.ID, mode, len(active), t.pot)
	t.bc.BroadcastToTable(t.ID, protocol.MsgDealAnim, protocol.DealAnimPayload{Dealer: t.dealer})

	// 发牌动画放完再开始计时
	delay := t.t.DealAnimBase + time.Duration(len(active))*t.t.DealAnimPerSeat
	t.afterHand(delay, func() {
		if t.state != StateActive {
			return
		}
		t.startTurnTimerLocked()
		t.broadcastStateLocked()
	})
}

// nextTurnLocked 顺时针找下一个能行动的座位，跳过弃牌/旁观/离线；
// 有界循环，最多绕一圈
func (t *Table) nextTurnLocked() {
	if len(t.players) == 0 {
		return
	}
	for loop := 0; loop < len(t.players); loop++ {
		t.turnIndex = (t.turnIndex + 1) % len(t.players)
		p := t.players[t.turnIndex]
		if !p.IsFolded && !p.IsSpectator && p.IsOnline {
			break
		}
	}
	t.startTurnTimerLocked()
	t.broadcastStateLocked()
}

// foldLocked 弃牌。只剩一个活跃座位时直接结算
func (t *Table) foldLocked(p *Player, forced bool) {
	p.IsFolded = true
	if forced {
		log.Printf("[table %s] %s 被强制弃牌", t.ID, p.Username)
	}
	t.bc.BroadcastToTable(t.ID, protocol.MsgActionAnim, protocol.ActionAnimPayload{
		Kind:     "fold",
		Username: p.Username,
	})

	active := t.activePlayersLocked()
	if len(active) == 1 {
		t.endRoundLocked(active[0])
		return
	}
	if t.state == StateActive {
		t.nextTurnLocked()
	}
}

// betLocked 下注。超出筹码时本地拒绝、重上闹钟，只通知行动者
func (t *Table) betLocked(p *Player, amount int) {
	if amount <= 0 {
		t.sendErrorLocked(p.ConnID, protocol.ErrCodeInvalidMsg)
		t.startTurnTimerLocked()
		return
	}
	if p.Chips < amount {
		t.sendErrorLocked(p.ConnID, protocol.ErrCodeInsufficientChips)
		t.startTurnTimerLocked()
		return
	}

	p.Chips -= amount
	t.pot += amount
	t.currentBet = amount
	t.lastBetBlind = !p.HasSeen
	p.CurrentBet = amount
	p.HasActed = true

	kind := "call"
	if amount > t.BaseStake*2 {
		kind = "raise"
	}
	t.bc.BroadcastToTable(t.ID, protocol.MsgActionAnim, protocol.ActionAnimPayload{
		Kind:     kind,
		Username: p.Username,
		Amount:   amount,
	})

	t.nextTurnLocked()
}

// callAmountLocked 该座位此刻跟注需要的筹码
func (t *Table) callAmountLocked(p *Player) int {
	if p == nil || !p.active() {
		return 0
	}
	firstAction := true
	for _, q := range t.players {
		if q.active() && q.CurrentBet != 0 {
			firstAction = false
			break
		}
	}
	return rule.CallAmount(t.BaseStake, t.currentBet, t.lastBetBlind, !p.HasSeen, firstAction)
}

// showdownLocked 付跟注费后立刻进入摊牌。只剩两个活跃玩家这个
// 前提由界面层保证，这里只做筹码校验
func (t *Table) showdownLocked(p *Player) {
	cost := t.callAmountLocked(p)
	if cost > 0 {
		if p.Chips < cost {
			t.sendErrorLocked(p.ConnID, protocol.ErrCodeInsufficientChips)
			t.startTurnTimerLocked()
			return
		}
		p.Chips -= cost
		t.pot += cost
		t.bc.BroadcastToTable(t.ID, protocol.MsgActionAnim, protocol.ActionAnimPayload{
			Kind:     "call",
			Username: p.Username,
			Amount:   cost,
		})
	}
	t.triggerShowdownLocked()
}

// triggerShowdownLocked 公开所有活跃玩家的牌和分值，延迟后结算；
// 多人同分进入突然死亡投票
func (t *Table) triggerShowdownLocked() {
	log.Printf("[table %s] 摊牌", t.ID)
	t.state = StateShowdown
	stopTimer(&t.timers.turn)
	t.turnToken = ""
	t.broadcastStateLocked()

	active := t.activePlayersLocked()
	maxScore := -1
	var winners []*Player
	for _, p := range active {
		t.bc.BroadcastToTable(t.ID, protocol.MsgShowdownReveal, protocol.ShowdownRevealPayload{
			Username: p.Username,
			Cards:    protocol.CardsToInfos(p.Hand),
			Score:    p.score,
		})
		if p.score > maxScore {
			maxScore = p.score
			winners = []*Player{p}
		} else if p.score == maxScore {
			winners = append(winners, p)
		}
	}

	t.afterHand(t.t.ShowdownDelay, func() {
		if t.state != StateShowdown {
			return
		}
		if len(winners) > 1 {
			t.startTieLocked(winners)
			return
		}
		if len(winners) == 1 {
			t.endRoundLocked(winners[0])
		}
	})
}

// startTieLocked 摊牌平分：底池结转，全部非旁观者获得投票资格，
// 平分者预投 YES
func (t *Table) startTieLocked(winners []*Player) {
	t.systemLocked("Seka! 平分最高分，底池结转。")
	t.carriedPot += t.pot
	t.pot = 0

	t.eligible = make(map[string]bool)
	for _, p := range t.players {
		if !p.IsSpectator {
			t.eligible[p.Username] = true
		}
	}
	t.tieWinners = t.tieWinners[:0]
	for _, p := range winners {
		t.tieWinners = append(t.tieWinners, p.Username)
	}

	t.startVotingLocked(ModeSuddenDeath)
}

// endRoundLocked 一局结束：赢家成为新庄家，底池进入结转槽，
// 等待赢家在抉择窗口内亮牌或发起加倍局
func (t *Table) endRoundLocked(w *Player) {
	stopTimer(&t.timers.turn)
	t.turnToken = ""

	t.lastWinner = w.Username
	t.dealer = w.Username
	t.state = StateWinnerDecision
	t.carriedPot += t.pot
	t.pot = 0

	log.Printf("[table %s] 本局赢家 %s，待领 %d", t.ID, w.Username, t.carriedPot)
	t.bc.BroadcastToTable(t.ID, protocol.MsgRoundWinner, protocol.RoundWinnerPayload{
		Winner: w.Username,
		Amount: t.carriedPot,
	})
	t.broadcastStateLocked()

	stopTimer(&t.timers.decision)
	t.timers.decision = time.AfterFunc(t.t.DecisionDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state != StateWinnerDecision {
			return
		}
		t.creditCarriedPotLocked(w)
		t.startGameLocked(ModeNormal)
	})
}

// creditCarriedPotLocked 把结转底池记入赢家并落库
func (t *Table) creditCarriedPotLocked(w *Player) {
	w.Chips += t.carriedPot
	t.carriedPot = 0
	t.store.UpdateBalance(w.Username, w.Chips)
}

// openPreviousLocked 付跟注费看上一个已看牌的活跃座位的手牌，
// 短暂延迟后低分一方被强制弃牌
func (t *Table) openPreviousLocked(c *Player) {
	prev := t.previousActiveLocked(c)
	if prev == nil || !prev.HasSeen {
		t.sendErrorLocked(c.ConnID, protocol.ErrCodeCannotReveal)
		t.startTurnTimerLocked()
		return
	}

	cost := t.callAmountLocked(c)
	if c.Chips < cost {
		t.sendErrorLocked(c.ConnID, protocol.ErrCodeInsufficientChips)
		t.startTurnTimerLocked()
		return
	}
	c.Chips -= cost
	t.pot += cost

	t.bc.BroadcastToTable(t.ID, protocol.MsgActionAnim, protocol.ActionAnimPayload{
		Kind:     "call",
		Username: c.Username,
		Amount:   cost,
	})
	// 只给发起者看
	t.bc.SendToConnection(c.ConnID, protocol.MsgRevealHand, protocol.RevealHandPayload{
		Username: prev.Username,
		Cards:    protocol.CardsToInfos(prev.Hand),
	})

	t.afterHand(t.t.CompareDelay, func() {
		if t.state != StateActive {
			return
		}
		if c.score > prev.score {
			t.foldLocked(prev, true)
		} else {
			t.foldLocked(c, false)
		}
	})
}

// previousActiveLocked 从 cur 往前找最近的活跃座位，最多绕一圈
func (t *Table) previousActiveLocked(cur *Player) *Player {
	if len(t.players) < 2 {
		return nil
	}
	idx := slices.Index(t.players, cur)
	check := idx
	for loop := 0; loop < len(t.players); loop++ {
		check = (check - 1 + len(t.players)) % len(t.players)
		p := t.players[check]
		if p != cur && p.active() {
			return p
		}
	}
	return nil
}
