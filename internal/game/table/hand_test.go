package table

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/seka/internal/game/deck"
	"github.com/palemoky/seka/internal/game/rule"
	"github.com/palemoky/seka/internal/protocol"
)

// seatOf finds a seat in a snapshot.
func seatOf(t *testing.T, state protocol.TableState, username string) protocol.SeatInfo {
	t.Helper()
	for _, s := range state.Seats {
		if s.Username == username {
			return s
		}
	}
	t.Fatalf("no seat for %s", username)
	return protocol.SeatInfo{}
}

// startTwoPlayerHand seats alice and bob with 1000 chips each and
// waits for the hand to begin. alice acts first, bob deals.
func startTwoPlayerHand(t *testing.T, tbl *Table, store *fakeStore) {
	t.Helper()
	store.set("alice", 1000)
	store.set("bob", 1000)
	require.True(t, tbl.AddPlayer("alice", "a1").Success)
	require.True(t, tbl.AddPlayer("bob", "b1").Success)
	waitState(t, tbl, StateActive)
}

func TestHandStartDealsAndCollectsAntes(t *testing.T) {
	tbl, _, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	state := tbl.PublicState()
	assert.Equal(t, string(ModeNormal), state.GameMode)
	assert.Equal(t, 20, state.Pot)
	assert.Equal(t, "bob", state.Dealer)
	assert.Equal(t, "alice", state.CurrentTurn)
	assert.True(t, state.CanShowdown)

	assert.Equal(t, 990, seatOf(t, state, "alice").Chips)
	assert.Equal(t, 990, seatOf(t, state, "bob").Chips)

	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for _, p := range tbl.players {
		assert.Len(t, p.Hand, 3)
		assert.Greater(t, p.score, 0)
	}
	assert.Equal(t, 15, tbl.deck.Remaining())
}

func TestBlindFirstActionCallAmount(t *testing.T) {
	tbl, _, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	state := tbl.PublicState()
	// nobody has bet yet, so everyone may enter for the base stake
	assert.Equal(t, 10, seatOf(t, state, "alice").CallAmount)
	assert.Equal(t, 10, seatOf(t, state, "bob").CallAmount)
}

func TestBetAdvancesTurn(t *testing.T) {
	tbl, _, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: 10})

	state := tbl.PublicState()
	assert.Equal(t, 30, state.Pot)
	assert.Equal(t, "bob", state.CurrentTurn)
	assert.Equal(t, 980, seatOf(t, state, "alice").Chips)
	// blind follows blind at the same amount
	assert.Equal(t, 10, seatOf(t, state, "bob").CallAmount)
}

func TestOpenPlayerPaysDoubleAfterBlindBet(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: 20})
	tbl.HandleAction("b1", protocol.PlayerActionPayload{Kind: protocol.ActionSeeCards})

	assert.Equal(t, 1, bc.countTo("b1", protocol.MsgYourCards))
	state := tbl.PublicState()
	bob := seatOf(t, state, "bob")
	assert.True(t, bob.HasSeen)
	// seeing the cards doubles the price of the blind bet
	assert.Equal(t, 40, bob.CallAmount)
}

func TestBetRejectionKeepsTurn(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: 99999})
	assert.Equal(t, protocol.ErrCodeInsufficientChips, bc.lastErrorTo("a1"))

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: -5})
	assert.Equal(t, protocol.ErrCodeInvalidMsg, bc.lastErrorTo("a1"))

	state := tbl.PublicState()
	assert.Equal(t, "alice", state.CurrentTurn)
	assert.Equal(t, 20, state.Pot)
}

func TestActionFromWrongSeatIgnored(t *testing.T) {
	tbl, _, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("b1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: 10})

	state := tbl.PublicState()
	assert.Equal(t, "alice", state.CurrentTurn)
	assert.Equal(t, 20, state.Pot)
	assert.Equal(t, 990, seatOf(t, state, "bob").Chips)
}

func TestFoldToOneEndsHand(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionFold})

	state := tbl.PublicState()
	assert.Equal(t, string(StateWinnerDecision), state.GameState)
	assert.Equal(t, "bob", state.LastWinner)
	assert.Equal(t, "bob", state.Dealer)
	// the pot is parked until the winner decides
	assert.Equal(t, 20, state.Pot)
	assert.Equal(t, 1, bc.count(protocol.MsgRoundWinner))
}

func TestTurnTimeoutForcesFold(t *testing.T) {
	tm := testTimings()
	tm.TurnTimeout = 60 * time.Millisecond
	tbl, bc, store := newTestTable(10, tm)
	startTwoPlayerHand(t, tbl, store)

	// alice never acts; her turn expires and bob takes the hand
	waitState(t, tbl, StateWinnerDecision)
	state := tbl.PublicState()
	assert.Equal(t, "bob", state.LastWinner)
	assert.True(t, seatOf(t, state, "alice").IsFolded)
	assert.Equal(t, 1, bc.count(protocol.MsgRoundWinner))
}

func TestProcessedActionInvalidatesTurnTimer(t *testing.T) {
	tm := testTimings()
	tm.TurnTimeout = 80 * time.Millisecond
	tbl, bc, store := newTestTable(10, tm)
	startTwoPlayerHand(t, tbl, store)

	// alice acts well before her deadline, then bob times out
	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionBet, Amount: 10})
	waitState(t, tbl, StateWinnerDecision)

	// alice's stale alarm must not fire on top of bob's: exactly one
	// winner, and it is alice
	time.Sleep(120 * time.Millisecond)
	state := tbl.PublicState()
	assert.Equal(t, "alice", state.LastWinner)
	assert.False(t, seatOf(t, state, "alice").IsFolded)
	assert.Equal(t, 1, bc.count(protocol.MsgRoundWinner))
}

// rigHands overwrites the dealt hands so showdown outcomes are
// deterministic.
func rigHands(tbl *Table, hands map[string][]deck.Card) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for _, p := range tbl.players {
		if h, ok := hands[p.Username]; ok {
			p.Hand = h
			p.score = rule.Score(h)
		}
	}
}

func TestShowdownRevealsAndSettles(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	rigHands(tbl, map[string][]deck.Card{
		"alice": {
			{Rank: deck.RankA, Suit: deck.Hearts},
			{Rank: deck.RankA, Suit: deck.Diamonds},
			{Rank: deck.Rank7, Suit: deck.Spades, Joker: true},
		},
		"bob": {
			{Rank: deck.Rank10, Suit: deck.Hearts},
			{Rank: deck.RankJ, Suit: deck.Diamonds},
			{Rank: deck.RankQ, Suit: deck.Clubs},
		},
	})

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionShowdown})

	// both hands went public
	assert.Equal(t, 2, bc.count(protocol.MsgShowdownReveal))

	waitState(t, tbl, StateWinnerDecision)
	state := tbl.PublicState()
	assert.Equal(t, "alice", state.LastWinner)
	// 20 in antes plus alice's 10 call
	assert.Equal(t, 30, state.Pot)
}

func TestDecisionTimeoutCreditsWinnerAndRedeals(t *testing.T) {
	tm := testTimings()
	tm.DecisionDelay = 40 * time.Millisecond
	tbl, _, store := newTestTable(10, tm)
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionFold})

	// winner does nothing, pot lands in his stack and a fresh hand starts
	require.Eventually(t, func() bool {
		state := tbl.PublicState()
		return state.GameState == string(StateActive) && state.Pot == 20
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1010, store.GetBalance("bob"))
	state := tbl.PublicState()
	assert.Equal(t, string(ModeNormal), state.GameMode)
	// 990 + 20 pot - 10 next ante
	assert.Equal(t, 1000, seatOf(t, state, "bob").Chips)
}

func TestFlexRevealsAndCollectsImmediately(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionFold})
	reveals := bc.count(protocol.MsgShowdownReveal)

	// only the winner may flex
	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionFlex})
	assert.Equal(t, reveals, bc.count(protocol.MsgShowdownReveal))

	tbl.HandleAction("b1", protocol.PlayerActionPayload{Kind: protocol.ActionFlex})
	assert.Equal(t, reveals+1, bc.count(protocol.MsgShowdownReveal))
	assert.Equal(t, 1010, store.GetBalance("bob"))

	// a new hand follows the flex pause
	require.Eventually(t, func() bool {
		return tbl.PublicState().GameState == string(StateActive)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOpenPreviousComparesHands(t *testing.T) {
	tm := testTimings()
	tm.StartDelay = time.Hour
	tbl, bc, store := newTestTable(10, tm)
	for _, name := range []string{"a", "b", "c"} {
		store.set(name, 1000)
		require.True(t, tbl.AddPlayer(name, "conn-"+name).Success)
	}

	// hand in progress, c to act, b already looked at a stronger hand
	tbl.mu.Lock()
	tbl.state = StateActive
	tbl.currentBet = tbl.BaseStake
	tbl.lastBetBlind = true
	for _, p := range tbl.players {
		p.Hand = []deck.Card{
			{Rank: deck.Rank10, Suit: deck.Hearts},
			{Rank: deck.RankJ, Suit: deck.Diamonds},
			{Rank: deck.RankQ, Suit: deck.Clubs},
		}
		p.score = rule.Score(p.Hand)
	}
	b := tbl.playerByUsernameLocked("b")
	b.HasSeen = true
	b.Hand = []deck.Card{
		{Rank: deck.RankA, Suit: deck.Hearts},
		{Rank: deck.RankA, Suit: deck.Diamonds},
		{Rank: deck.Rank10, Suit: deck.Spades},
	}
	b.score = rule.Score(b.Hand)
	c := tbl.playerByUsernameLocked("c")
	tbl.turnIndex = slices.Index(tbl.players, c)
	tbl.mu.Unlock()

	tbl.HandleAction("conn-c", protocol.PlayerActionPayload{Kind: protocol.ActionOpenPrevious})

	// only the payer sees the revealed hand
	assert.Equal(t, 1, bc.countTo("conn-c", protocol.MsgRevealHand))
	assert.Equal(t, 0, bc.countTo("conn-b", protocol.MsgRevealHand))

	// c paid and lost the comparison
	require.Eventually(t, func() bool {
		return seatOf(t, tbl.PublicState(), "c").IsFolded
	}, 2*time.Second, 5*time.Millisecond)
	state := tbl.PublicState()
	assert.Equal(t, 10, state.Pot)
	assert.Equal(t, 990, seatOf(t, state, "c").Chips)
	assert.False(t, seatOf(t, state, "b").IsFolded)
}

func TestOpenPreviousRequiresSeenNeighbor(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	startTwoPlayerHand(t, tbl, store)

	// bob is still blind, so alice cannot pay to see his hand
	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionOpenPrevious})

	assert.Equal(t, protocol.ErrCodeCannotReveal, bc.lastErrorTo("a1"))
	state := tbl.PublicState()
	assert.Equal(t, "alice", state.CurrentTurn)
	assert.Equal(t, 20, state.Pot)
}
