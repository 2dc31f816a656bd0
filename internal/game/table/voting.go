package table

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/palemoky/seka/internal/protocol"
)

// entryFeeLocked 加注局的入场费：结转底池的一半，向上取整
func (t *Table) entryFeeLocked() int {
	return (t.carriedPot + 1) / 2
}

// startVotingLocked 进入投票阶段。DOUBLE_DOWN 的资格按筹码门槛算，
// 上局赢家预投 YES；SUDDEN_DEATH 的资格在平分时已确定，平分者预投 YES
func (t *Table) startVotingLocked(mode Mode) {
	stopTimer(&t.timers.turn)
	t.turnToken = ""
	stopTimer(&t.timers.decision)

	t.state = StateVoting
	t.voteMode = mode
	for _, p := range t.players {
		p.Vote = ""
	}

	switch mode {
	case ModeDoubleDown:
		fee := t.entryFeeLocked()
		t.eligible = make(map[string]bool)
		for _, p := range t.players {
			if !p.IsSpectator && p.Chips >= fee {
				t.eligible[p.Username] = true
			}
		}
		if w := t.playerByUsernameLocked(t.lastWinner); w != nil {
			w.Vote = protocol.VoteYes
		}
	case ModeSuddenDeath:
		for _, name := range t.tieWinners {
			if p := t.playerByUsernameLocked(name); p != nil {
				p.Vote = protocol.VoteYes
			}
		}
	}

	t.broadcastStateLocked()
	t.systemLocked(fmt.Sprintf("%s 投票，%d 秒内有效", mode, int(t.t.VoteTimeout.Seconds())))

	stopTimer(&t.timers.vote)
	voteMode := mode
	t.timers.vote = time.AfterFunc(t.t.VoteTimeout, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state != StateVoting || t.voteMode != voteMode {
			return
		}
		t.finalizeVotingLocked(voteMode)
	})

	// 预投可能已经凑齐全部选票
	t.checkAllVotedLocked()
}

// processVoteLocked 记票。旁观者和无资格者的票直接忽略
func (t *Table) processVoteLocked(p *Player, vote string) {
	if p.IsSpectator || !t.eligible[p.Username] {
		return
	}
	if vote != protocol.VoteYes && vote != protocol.VoteNo {
		return
	}
	p.Vote = vote
	t.broadcastStateLocked()
	t.checkAllVotedLocked()
}

// checkAllVotedLocked 所有有资格的玩家都表态后提前结票
func (t *Table) checkAllVotedLocked() {
	count := 0
	for _, p := range t.players {
		if !t.eligible[p.Username] {
			continue
		}
		count++
		if p.Vote == "" {
			return
		}
	}
	if count == 0 {
		return
	}
	stopTimer(&t.timers.vote)
	t.finalizeVotingLocked(t.voteMode)
}

// finalizeVotingLocked 结票。不足两个 YES 时取消加注局：突然死亡
// 把结转底池平分给平分者，加倍局把底池整体判给上局赢家；
// 否则收取入场费、确定参与者集合并开加注局
func (t *Table) finalizeVotingLocked(mode Mode) {
	stopTimer(&t.timers.vote)

	var yes []*Player
	for _, p := range t.players {
		if t.eligible[p.Username] && p.Vote == protocol.VoteYes {
			yes = append(yes, p)
		}
	}

	if len(yes) < 2 {
		log.Printf("[table %s] %s 流局，YES=%d", t.ID, mode, len(yes))
		if mode == ModeSuddenDeath {
			var present []*Player
			for _, name := range t.tieWinners {
				if p := t.playerByUsernameLocked(name); p != nil {
					present = append(present, p)
				}
			}
			if len(present) > 0 {
				split := t.carriedPot / len(present)
				for _, p := range present {
					p.Chips += split
					t.store.UpdateBalance(p.Username, p.Chips)
				}
			}
		} else {
			if w := t.playerByUsernameLocked(t.lastWinner); w != nil {
				w.Chips += t.carriedPot
				t.store.UpdateBalance(w.Username, w.Chips)
			}
		}
		t.carriedPot = 0
		t.startGameLocked(ModeNormal)
		return
	}

	// 平分者（突然死亡）和上局赢家（加倍局）免入场费
	fee := t.entryFeeLocked()
	potAdded := 0
	confirmed := make(map[string]bool)
	for _, p := range yes {
		free := (mode == ModeSuddenDeath && slices.Contains(t.tieWinners, p.Username)) ||
			(mode == ModeDoubleDown && p.Username == t.lastWinner)
		if free {
			confirmed[p.Username] = true
			continue
		}
		if p.Chips >= fee {
			p.Chips -= fee
			potAdded += fee
			confirmed[p.Username] = true
		} else {
			p.Vote = protocol.VoteNo
			t.sendErrorLocked(p.ConnID, protocol.ErrCodeInsufficientChips)
		}
	}

	// 交完钱后不足两人，入场费并入结转底池，照常开普通局
	if len(confirmed) < 2 {
		t.carriedPot += potAdded
		t.startGameLocked(ModeNormal)
		return
	}

	t.eligible = confirmed
	t.carriedPot += potAdded
	t.pot = 0
	t.startGameLocked(mode)
}
