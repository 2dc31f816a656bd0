package table

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/palemoky/seka/internal/apperrors"
	"github.com/palemoky/seka/internal/config"
	"github.com/palemoky/seka/internal/game/deck"
	"github.com/palemoky/seka/internal/protocol"
)

// State 牌桌状态
type State string

const (
	StateWaiting        State = "WAITING"
	StateActive         State = "ACTIVE"
	StateShowdown       State = "SHOWDOWN"
	StateWinnerDecision State = "WINNER_DECISION"
	StateVoting         State = "VOTING"
)

// Mode 牌局模式
type Mode string

const (
	ModeNormal      Mode = "NORMAL"
	ModeSuddenDeath Mode = "SUDDEN_DEATH" // 平分后的突然死亡局
	ModeDoubleDown  Mode = "DOUBLE_DOWN"  // 赢家发起的加倍局
)

// Broadcaster 传输层协作者。牌桌从不直接摸 socket，
// 只按桌或按连接寻址。
type Broadcaster interface {
	BroadcastToTable(tableID string, msgType protocol.MessageType, payload any)
	SendToConnection(connID string, msgType protocol.MessageType, payload any)
	AnnounceGlobally(msgType protocol.MessageType, payload any)
}

// Persistence 余额持久化协作者。读失败返回 0，写是 fire-and-forget，
// 两者都不允许把故障抛回牌局。
type Persistence interface {
	GetBalance(username string) int
	UpdateBalance(username string, chips int)
}

// Deps 牌桌的外部依赖
type Deps struct {
	Broadcast      Broadcaster
	Store          Persistence
	Timings        config.Timings
	MaxPlayers     int
	MinBuyInFactor int
}

// timerSlots 每个阶段至多一个有效计时器
type timerSlots struct {
	start    *time.Timer
	turn     *time.Timer
	vote     *time.Timer
	decision *time.Timer
}

// Table 一张 Seka 牌桌。所有外部事件（加入、动作、计时器触发、
// 断线）都在 mu 下串行处理，不同牌桌相互独立。
type Table struct {
	ID        string
	Name      string
	BaseStake int

	mu      sync.Mutex
	players []*Player
	deck    *deck.Deck

	state    State
	mode     Mode
	voteMode Mode

	pot          int
	carriedPot   int // 平分或加倍局结转的底池
	currentBet   int
	lastBetBlind bool

	turnIndex  int
	dealer     string
	lastWinner string

	// 回合令牌：每次轮到某人行动时重新生成，任何被处理的动作
	// 先作废它；计时器触发时令牌不匹配即视为已被取代
	turnToken string
	// 一局一个序号，守护发牌动画/摊牌/比较这类一次性延迟回调
	handSeq uint64
	timers  timerSlots

	eligible   map[string]bool // 加注局的参与资格（用户名）
	tieWinners []string        // 摊牌平分的最高分玩家

	maxPlayers     int
	minBuyInFactor int
	bc             Broadcaster
	store          Persistence
	t              config.Timings
}

// New 创建牌桌
func New(id, name string, stake int, deps Deps) *Table {
	if stake <= 0 {
		stake = 10
	}
	return &Table{
		ID:             id,
		Name:           name,
		BaseStake:      stake,
		state:          StateWaiting,
		mode:           ModeNormal,
		lastBetBlind:   true,
		eligible:       make(map[string]bool),
		maxPlayers:     deps.MaxPlayers,
		minBuyInFactor: deps.MinBuyInFactor,
		bc:             deps.Broadcast,
		store:          deps.Store,
		t:              deps.Timings,
	}
}

// JoinResult 加入结果
type JoinResult struct {
	Success     bool
	IsReconnect bool
	ErrCode     int
	Msg         string
}

// AddPlayer 按用户名入座；已有同名座位视为重连
func (t *Table) AddPlayer(username, connID string) JoinResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing := t.playerByUsernameLocked(username); existing != nil {
		existing.ConnID = connID
		existing.IsOnline = true
		t.broadcastStateLocked()
		// 对局中重连，已看牌的补发自己的手牌；盲注状态不发，
		// 客户端不该提前见到
		if t.state != StateWaiting && !existing.IsFolded && existing.HasSeen && len(existing.Hand) > 0 {
			t.bc.SendToConnection(connID, protocol.MsgYourCards, protocol.YourCardsPayload{
				Cards: protocol.CardsToInfos(existing.Hand),
			})
		}
		return JoinResult{Success: true, IsReconnect: true}
	}

	if len(t.players) >= t.maxPlayers {
		return JoinResult{ErrCode: apperrors.ErrTableFull.Code, Msg: apperrors.ErrTableFull.Message}
	}

	chips := t.store.GetBalance(username)
	minBuyIn := t.BaseStake * t.minBuyInFactor
	if chips < minBuyIn {
		return JoinResult{
			ErrCode: apperrors.ErrMinBuyIn.Code,
			Msg:     fmt.Sprintf("%s（需要 %d）", apperrors.ErrMinBuyIn.Message, minBuyIn),
		}
	}

	p := &Player{
		ConnID:      connID,
		Username:    username,
		Chips:       chips,
		IsOnline:    true,
		IsSpectator: t.state != StateWaiting, // 对局中途入座先旁观
	}
	t.players = append(t.players, p)
	if len(t.players) == 1 {
		t.dealer = username
	}

	t.broadcastStateLocked()
	t.checkStartLocked()
	return JoinResult{Success: true}
}

// RemovePlayer 显式离开（LEAVE 动作或上层要求移除）
func (t *Table) RemovePlayer(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p := t.playerByConnLocked(connID); p != nil {
		t.removeLocked(p)
	}
}

// HandleDisconnect 连接断开。对局中的未弃牌参与者按强制弃牌处理；
// 座位保留等待重连，只有在线人数跌破 2 时才移除
func (t *Table) HandleDisconnect(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByConnLocked(connID)
	if p == nil {
		return
	}

	p.IsOnline = false
	if t.state == StateActive && p.active() {
		t.foldLocked(p, true)
	}
	t.store.UpdateBalance(p.Username, p.Chips)

	online := 0
	for _, q := range t.players {
		if q.IsOnline {
			online++
		}
	}
	if online < 2 {
		t.deleteSeatLocked(p)
		if len(t.players) < 2 && t.state != StateWaiting {
			t.resetToWaitingLocked()
			return
		}
	}
	t.broadcastStateLocked()
}

// PlayerCount 当前座位数
func (t *Table) PlayerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.players)
}

// removeLocked 弃牌（如有必要）、落袋、拆座位
func (t *Table) removeLocked(p *Player) {
	if t.state == StateActive && p.active() {
		t.foldLocked(p, true)
	}
	t.store.UpdateBalance(p.Username, p.Chips)
	t.deleteSeatLocked(p)

	log.Printf("[table %s] 玩家 %s 离座，剩余 %d 人", t.ID, p.Username, len(t.players))

	if len(t.players) < 2 && t.state != StateWaiting {
		t.resetToWaitingLocked()
		return
	}
	t.broadcastStateLocked()
}

func (t *Table) deleteSeatLocked(p *Player) {
	idx := slices.Index(t.players, p)
	if idx < 0 {
		return
	}
	t.players = slices.Delete(t.players, idx, idx+1)
	// 座位移除后修正回合下标，防止越界
	if idx < t.turnIndex {
		t.turnIndex--
	}
	if t.turnIndex >= len(t.players) {
		t.turnIndex = 0
	}
}

// checkStartLocked 满足两名有筹码的在线玩家后安排开局
func (t *Table) checkStartLocked() {
	if t.state != StateWaiting || t.timers.start != nil {
		return
	}

	ready := 0
	for _, p := range t.players {
		if p.IsOnline && p.Chips >= t.BaseStake {
			ready++
		}
	}
	if ready < 2 {
		return
	}

	t.systemLocked(fmt.Sprintf("牌局 %d 秒后开始...", int(t.t.StartDelay.Seconds())))
	t.timers.start = time.AfterFunc(t.t.StartDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.timers.start = nil
		if t.state == StateWaiting {
			t.startGameLocked(ModeNormal)
		}
	})
}

// settlePendingPotLocked 回到等待态前结清挂账的底池：平分投票期间
// 归还给平分者，其余情况归上局赢家，谁都找不到就只能沉没
func (t *Table) settlePendingPotLocked() {
	total := t.pot + t.carriedPot
	if total == 0 {
		return
	}

	if t.state == StateVoting && t.voteMode == ModeSuddenDeath && len(t.tieWinners) > 0 {
		split := total / len(t.tieWinners)
		for _, name := range t.tieWinners {
			if p := t.playerByUsernameLocked(name); p != nil {
				p.Chips += split
				t.store.UpdateBalance(p.Username, p.Chips)
			}
		}
	} else if w := t.playerByUsernameLocked(t.lastWinner); w != nil {
		w.Chips += total
		t.store.UpdateBalance(w.Username, w.Chips)
	} else {
		log.Printf("[table %s] 无人可领的底池 %d 被沉没", t.ID, total)
	}
	t.pot = 0
	t.carriedPot = 0
}

// resetToWaitingLocked 人数不足时回到等待态，结清底池并清空所有计时器
func (t *Table) resetToWaitingLocked() {
	t.settlePendingPotLocked()
	t.state = StateWaiting
	t.mode = ModeNormal
	t.voteMode = ""
	t.pot = 0
	t.carriedPot = 0
	t.stopAllTimersLocked()
	t.handSeq++
	t.broadcastStateLocked()
}

// --- 查找与广播辅助 ---

func (t *Table) playerByConnLocked(connID string) *Player {
	for _, p := range t.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (t *Table) playerByUsernameLocked(username string) *Player {
	for _, p := range t.players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

// activePlayersLocked 未弃牌且非旁观的座位，按座位顺序
func (t *Table) activePlayersLocked() []*Player {
	var active []*Player
	for _, p := range t.players {
		if p.active() {
			active = append(active, p)
		}
	}
	return active
}

func (t *Table) broadcastStateLocked() {
	t.bc.BroadcastToTable(t.ID, protocol.MsgGameState, t.publicStateLocked())
	t.bc.AnnounceGlobally(protocol.MsgLobbyCount, protocol.LobbyCountPayload{
		TableID: t.ID,
		Count:   len(t.players),
	})
}

func (t *Table) systemLocked(text string) {
	t.bc.BroadcastToTable(t.ID, protocol.MsgSystem, protocol.SystemPayload{Text: text})
}

func (t *Table) sendErrorLocked(connID string, code int) {
	t.bc.SendToConnection(connID, protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: protocol.ErrorMessages[code],
	})
}
