package table

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/seka/internal/apperrors"
	"github.com/palemoky/seka/internal/config"
	"github.com/palemoky/seka/internal/protocol"
)

// event is one message captured by the fake transport.
type event struct {
	scope   string // "table" / "conn" / "global"
	target  string
	msgType protocol.MessageType
	payload any
}

// fakeBroadcast records everything the table emits instead of
// touching sockets.
type fakeBroadcast struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeBroadcast) BroadcastToTable(tableID string, msgType protocol.MessageType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{scope: "table", target: tableID, msgType: msgType, payload: payload})
}

func (f *fakeBroadcast) SendToConnection(connID string, msgType protocol.MessageType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{scope: "conn", target: connID, msgType: msgType, payload: payload})
}

func (f *fakeBroadcast) AnnounceGlobally(msgType protocol.MessageType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{scope: "global", msgType: msgType, payload: payload})
}

// count returns how many captured events match the type (any scope).
func (f *fakeBroadcast) count(msgType protocol.MessageType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.msgType == msgType {
			n++
		}
	}
	return n
}

// countTo returns how many events of the type were sent to one connection.
func (f *fakeBroadcast) countTo(connID string, msgType protocol.MessageType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.scope == "conn" && e.target == connID && e.msgType == msgType {
			n++
		}
	}
	return n
}

// lastErrorTo returns the code of the last error sent to a connection, or 0.
func (f *fakeBroadcast) lastErrorTo(connID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if e.scope == "conn" && e.target == connID && e.msgType == protocol.MsgError {
			if p, ok := e.payload.(protocol.ErrorPayload); ok {
				return p.Code
			}
		}
	}
	return 0
}

// fakeStore is an in-memory balance store.
type fakeStore struct {
	mu       sync.Mutex
	balances map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[string]int)}
}

func (f *fakeStore) GetBalance(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[username]
}

func (f *fakeStore) UpdateBalance(username string, chips int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[username] = chips
}

func (f *fakeStore) set(username string, chips int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[username] = chips
}

// testTimings keeps everything a test does not exercise effectively
// disabled, so background timers never interfere with assertions.
func testTimings() config.Timings {
	return config.Timings{
		StartDelay:      20 * time.Millisecond,
		TurnTimeout:     time.Hour,
		ShowdownDelay:   20 * time.Millisecond,
		DecisionDelay:   time.Hour,
		VoteTimeout:     time.Hour,
		FlexDelay:       20 * time.Millisecond,
		CompareDelay:    20 * time.Millisecond,
		DealAnimBase:    time.Millisecond,
		DealAnimPerSeat: 0,
	}
}

func newTestTable(stake int, tm config.Timings) (*Table, *fakeBroadcast, *fakeStore) {
	bc := &fakeBroadcast{}
	store := newFakeStore()
	tbl := New("t1", "Test Table", stake, Deps{
		Broadcast:      bc,
		Store:          store,
		Timings:        tm,
		MaxPlayers:     7,
		MinBuyInFactor: 5,
	})
	return tbl, bc, store
}

// waitState blocks until the table reaches the wanted state.
func waitState(t *testing.T, tbl *Table, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tbl.PublicState().GameState == string(want)
	}, 2*time.Second, 5*time.Millisecond, "table never reached %s", want)
}

func TestAddPlayerMinBuyIn(t *testing.T) {
	tbl, _, store := newTestTable(100, testTimings())

	store.set("poor", 499) // below 5x stake
	res := tbl.AddPlayer("poor", "c1")
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.ErrMinBuyIn.Code, res.ErrCode)
	assert.Contains(t, res.Msg, apperrors.ErrMinBuyIn.Message)
	assert.Equal(t, 0, tbl.PlayerCount())

	store.set("rich", 500)
	res = tbl.AddPlayer("rich", "c2")
	assert.True(t, res.Success)
	assert.Equal(t, 1, tbl.PlayerCount())
}

func TestAddPlayerTableFull(t *testing.T) {
	tm := testTimings()
	tm.StartDelay = time.Hour
	tbl, _, store := newTestTable(10, tm)

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		store.set(name, 1000)
		require.True(t, tbl.AddPlayer(name, "conn-"+name).Success)
	}
	store.set("h", 1000)
	res := tbl.AddPlayer("h", "conn-h")
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.ErrTableFull.Code, res.ErrCode)
	assert.Equal(t, apperrors.ErrTableFull.Message, res.Msg)
	assert.Equal(t, 7, tbl.PlayerCount())
}

func TestReconnectKeepsSeatAndResendsCards(t *testing.T) {
	tbl, bc, store := newTestTable(10, testTimings())
	store.set("alice", 1000)
	store.set("bob", 1000)
	tbl.AddPlayer("alice", "a1")
	tbl.AddPlayer("bob", "b1")
	waitState(t, tbl, StateActive)
	tbl.HandleAction("a1", protocol.PlayerActionPayload{Kind: protocol.ActionSeeCards})

	res := tbl.AddPlayer("alice", "a2")
	require.True(t, res.Success)
	assert.True(t, res.IsReconnect)
	assert.Equal(t, 2, tbl.PlayerCount())
	// the seen hand goes out again on the fresh connection
	assert.Equal(t, 1, bc.countTo("a2", protocol.MsgYourCards))
}

func TestDisconnectMidHandForcesFold(t *testing.T) {
	tm := testTimings()
	tm.DecisionDelay = time.Hour
	tbl, _, store := newTestTable(10, tm)
	store.set("alice", 1000)
	store.set("bob", 1000)
	tbl.AddPlayer("alice", "a1")
	tbl.AddPlayer("bob", "b1")
	waitState(t, tbl, StateActive)

	tbl.HandleDisconnect("b1")

	// bob folded, alice wins the pot, then the table resets because
	// she is alone
	waitState(t, tbl, StateWaiting)
	assert.Equal(t, 1, tbl.PlayerCount())
	// 1000 - 10 ante + 20 pot
	assert.Equal(t, 1010, store.GetBalance("alice"))
	state := tbl.PublicState()
	assert.Equal(t, "alice", state.LastWinner)
	assert.Equal(t, 0, state.Pot)
}

func TestDisconnectInWaitingReleasesSeat(t *testing.T) {
	tm := testTimings()
	tm.StartDelay = time.Hour
	tbl, _, store := newTestTable(10, tm)
	store.set("alice", 1000)
	store.set("bob", 1000)
	tbl.AddPlayer("alice", "a1")
	tbl.AddPlayer("bob", "b1")

	tbl.HandleDisconnect("b1")
	assert.Equal(t, 1, tbl.PlayerCount())
	// chips settled back to the store
	assert.Equal(t, 1000, store.GetBalance("bob"))
}

func TestLeaveActionSettlesBalance(t *testing.T) {
	tm := testTimings()
	tm.StartDelay = time.Hour
	tbl, bc, store := newTestTable(10, tm)
	store.set("alice", 1000)
	store.set("bob", 800)
	tbl.AddPlayer("alice", "a1")
	tbl.AddPlayer("bob", "b1")

	tbl.HandleAction("b1", protocol.PlayerActionPayload{Kind: protocol.ActionLeave})

	assert.Equal(t, 1, tbl.PlayerCount())
	assert.Equal(t, 800, store.GetBalance("bob"))
	assert.Equal(t, 1, bc.countTo("b1", protocol.MsgLeftTable))
}

func TestMidHandJoinBecomesSpectator(t *testing.T) {
	tbl, _, store := newTestTable(10, testTimings())
	store.set("alice", 1000)
	store.set("bob", 1000)
	store.set("carol", 1000)
	tbl.AddPlayer("alice", "a1")
	tbl.AddPlayer("bob", "b1")
	waitState(t, tbl, StateActive)

	require.True(t, tbl.AddPlayer("carol", "c1").Success)
	state := tbl.PublicState()
	for _, seat := range state.Seats {
		if seat.Username == "carol" {
			assert.True(t, seat.IsSpectator)
			return
		}
	}
	t.Fatal("carol has no seat")
}

func TestNextTurnSkipsFoldedSpectatorsAndOffline(t *testing.T) {
	tbl, _, _ := newTestTable(10, testTimings())

	tbl.mu.Lock()
	tbl.players = []*Player{
		{Username: "p0", ConnID: "c0", IsOnline: true},
		{Username: "p1", ConnID: "c1", IsOnline: true, IsFolded: true},
		{Username: "p2", ConnID: "c2", IsOnline: true, IsSpectator: true},
		{Username: "p3", ConnID: "c3", IsOnline: false},
		{Username: "p4", ConnID: "c4", IsOnline: true},
	}
	tbl.state = StateActive
	tbl.turnIndex = 0
	tbl.nextTurnLocked()
	got := tbl.players[tbl.turnIndex].Username
	tbl.mu.Unlock()

	assert.Equal(t, "p4", got)
}

func TestRegistry(t *testing.T) {
	bc := &fakeBroadcast{}
	store := newFakeStore()
	reg := NewRegistry(Deps{
		Broadcast:      bc,
		Store:          store,
		Timings:        testTimings(),
		MaxPlayers:     7,
		MinBuyInFactor: 5,
	})

	created := reg.Create("", "High Rollers", 200)
	require.NotEmpty(t, created.ID)

	got, ok := reg.Get(created.ID)
	require.True(t, ok)
	assert.Same(t, created, got)

	reg.Create("fixed", "Fixed", 50)
	assert.Equal(t, 2, reg.Count())

	list := reg.List()
	require.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, 7, s.MaxPlayers)
	}

	reg.Remove("fixed")
	assert.Equal(t, 1, reg.Count())
	_, ok = reg.Get("fixed")
	assert.False(t, ok)
}
