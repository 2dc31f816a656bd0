package table

import (
	"github.com/palemoky/seka/internal/protocol"
)

// PublicState 公开状态快照。这是牌桌对外的全部可观测状态，
// 隐藏手牌永远不在里面
func (t *Table) PublicState() protocol.TableState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publicStateLocked()
}

func (t *Table) publicStateLocked() protocol.TableState {
	activeOnline := 0
	for _, p := range t.players {
		if p.active() && p.IsOnline {
			activeOnline++
		}
	}

	state := protocol.TableState{
		ID:          t.ID,
		Name:        t.Name,
		Stake:       t.BaseStake,
		GameState:   string(t.state),
		GameMode:    string(t.mode),
		Pot:         t.pot + t.carriedPot,
		Dealer:      t.dealer,
		LastWinner:  t.lastWinner,
		CanShowdown: activeOnline == 2,
	}
	if t.state == StateVoting {
		state.VoteMode = string(t.voteMode)
	}
	if t.state == StateActive && t.turnIndex >= 0 && t.turnIndex < len(t.players) {
		state.CurrentTurn = t.players[t.turnIndex].Username
	}

	state.Seats = make([]protocol.SeatInfo, 0, len(t.players))
	for _, p := range t.players {
		seat := protocol.SeatInfo{
			Username:    p.Username,
			Chips:       p.Chips,
			CurrentBet:  p.CurrentBet,
			IsFolded:    p.IsFolded,
			IsSpectator: p.IsSpectator,
			HasSeen:     p.HasSeen,
			IsOnline:    p.IsOnline,
			HasActed:    p.HasActed,
		}
		if t.state == StateVoting {
			seat.VoteStatus = p.Vote
		}
		if t.state == StateActive && p.active() {
			seat.CallAmount = t.callAmountLocked(p)
		}
		state.Seats = append(state.Seats, seat)
	}
	return state
}
