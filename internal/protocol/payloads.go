package protocol

import "github.com/palemoky/seka/internal/game/deck"

// ActionKind 牌桌动作类型
type ActionKind string

const (
	ActionSeeCards       ActionKind = "SEE_CARDS"        // 看自己的牌
	ActionFold           ActionKind = "FOLD"             // 弃牌
	ActionBet            ActionKind = "BET"              // 下注/跟注
	ActionShowdown       ActionKind = "SHOWDOWN"         // 发起摊牌
	ActionOpenPrevious   ActionKind = "OPEN_PREVIOUS"    // 付费看上家的牌
	ActionLeave          ActionKind = "LEAVE"            // 离开牌桌
	ActionFlex           ActionKind = "FLEX"             // 赢家亮牌
	ActionInitDoubleDown ActionKind = "INIT_DOUBLE_DOWN" // 赢家发起加倍局
	ActionVote           ActionKind = "VOTE"             // 加注局投票
)

// VoteYes / VoteNo 投票取值
const (
	VoteYes = "YES"
	VoteNo  = "NO"
)

// --- 客户端请求 Payloads ---

// RegisterPayload 注册请求
type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginPayload 登录请求
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ReconnectPayload 断线重连请求
type ReconnectPayload struct {
	Token    string `json:"token"`    // 重连令牌
	Username string `json:"username"` // 玩家用户名
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// CreateTablePayload 创建牌桌请求
type CreateTablePayload struct {
	Name  string `json:"name"`
	Stake int    `json:"stake"`
}

// JoinTablePayload 加入牌桌请求
type JoinTablePayload struct {
	TableID string `json:"table_id"`
}

// ChatPayload 聊天请求
type ChatPayload struct {
	Text string `json:"text"`
}

// PlayerActionPayload 牌桌动作请求
type PlayerActionPayload struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"` // BET 的金额
	Vote   string     `json:"vote,omitempty"`   // VOTE 的取值 YES/NO
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnID string `json:"conn_id"`
}

// RegisteredPayload 注册成功响应
type RegisteredPayload struct {
	Username string `json:"username"`
	Chips    int    `json:"chips"`
}

// LoggedInPayload 登录成功响应
type LoggedInPayload struct {
	Username       string `json:"username"`
	Chips          int    `json:"chips"`
	DailyBonus     int    `json:"daily_bonus,omitempty"` // 当日首次登录的奖励
	ReconnectToken string `json:"reconnect_token"`
}

// ReconnectedPayload 重连成功响应
type ReconnectedPayload struct {
	Username string `json:"username"`
	TableID  string `json:"table_id,omitempty"` // 如果还在牌桌上
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// TableSummary 大厅里的一张牌桌
type TableSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Stake      int    `json:"stake"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
}

// LobbyListPayload 牌桌列表
type LobbyListPayload struct {
	Tables []TableSummary `json:"tables"`
}

// LobbyCountPayload 某桌人数变化（全局广播）
type LobbyCountPayload struct {
	TableID string `json:"table_id"`
	Count   int    `json:"count"`
}

// TableJoinedPayload 加入牌桌成功
type TableJoinedPayload struct {
	TableID     string `json:"table_id"`
	IsReconnect bool   `json:"is_reconnect"`
}

// --- 游戏状态 Payloads ---

// CardInfo 牌信息
type CardInfo struct {
	Rank    string `json:"rank"`
	Suit    string `json:"suit"`
	IsJoker bool   `json:"isJoker"`
}

// CardToInfo 领域牌转协议牌
func CardToInfo(c deck.Card) CardInfo {
	return CardInfo{
		Rank:    c.Rank.String(),
		Suit:    c.Suit.String(),
		IsJoker: c.Joker,
	}
}

// CardsToInfos 批量转换
func CardsToInfos(cards []deck.Card) []CardInfo {
	infos := make([]CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = CardToInfo(c)
	}
	return infos
}

// SeatInfo 快照里的单个座位。对局外人永远不包含手牌内容。
type SeatInfo struct {
	Username    string `json:"username"`
	Chips       int    `json:"chips"`
	CurrentBet  int    `json:"current_bet"`
	IsFolded    bool   `json:"is_folded"`
	IsSpectator bool   `json:"is_spectator"`
	HasSeen     bool   `json:"has_seen_cards"`
	IsOnline    bool   `json:"is_online"`
	HasActed    bool   `json:"has_acted"`
	VoteStatus  string `json:"vote_status,omitempty"` // 仅投票阶段
	CallAmount  int    `json:"call_amount"`           // 仅对局内的活跃座位
}

// TableState 公开状态快照，除私发手牌外这是客户端可见的全部状态
type TableState struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Stake       int        `json:"stake"`
	GameState   string     `json:"game_state"`
	GameMode    string     `json:"game_mode"`
	VoteMode    string     `json:"vote_mode,omitempty"` // 仅投票阶段
	Pot         int        `json:"pot"`                 // 含上局结转部分
	Dealer      string     `json:"dealer,omitempty"`
	LastWinner  string     `json:"last_winner,omitempty"`
	CurrentTurn string     `json:"current_turn,omitempty"` // 仅对局阶段
	CanShowdown bool       `json:"can_showdown"`
	Seats       []SeatInfo `json:"seats"`
}

// YourCardsPayload 私发手牌
type YourCardsPayload struct {
	Cards []CardInfo `json:"cards"`
}

// RevealHandPayload 私发他人手牌（看上家动作的回执）
type RevealHandPayload struct {
	Username string     `json:"username"`
	Cards    []CardInfo `json:"cards"`
}

// ShowdownRevealPayload 公开摊牌
type ShowdownRevealPayload struct {
	Username string     `json:"username"`
	Cards    []CardInfo `json:"cards"`
	Score    int        `json:"score"`
}

// DealAnimPayload 发牌动画
type DealAnimPayload struct {
	Dealer string `json:"dealer"`
}

// ActionAnimPayload 下注/弃牌动画
type ActionAnimPayload struct {
	Kind     string `json:"kind"` // call / raise / fold
	Username string `json:"username"`
	Amount   int    `json:"amount,omitempty"`
}

// RoundWinnerPayload 一局结束
type RoundWinnerPayload struct {
	Winner string `json:"winner"`
	Amount int    `json:"amount"`
}

// SystemPayload 系统提示
type SystemPayload struct {
	Text string `json:"text"`
}

// ChatRelayPayload 聊天广播
type ChatRelayPayload struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
