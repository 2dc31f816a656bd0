package table

import "github.com/palemoky/seka/internal/game/deck"

// Player 一个座位。按用户名识别身份，连接引用在重连时更新；
// 座位在显式离开或断线导致人数不足之前一直保留。
type Player struct {
	ConnID   string // 当前连接，断线重连时替换
	Username string

	Chips      int
	Hand       []deck.Card
	CurrentBet int

	IsFolded    bool
	HasSeen     bool // false = 盲注状态
	HasActed    bool
	IsOnline    bool
	IsSpectator bool
	Vote        string // ""/YES/NO，仅投票阶段有意义

	// 发牌时服务端立即算好的分值，摊牌前不对外暴露
	score int
}

// active 仍在本局争夺底池的座位
func (p *Player) active() bool {
	return !p.IsFolded && !p.IsSpectator
}

// resetForHand 清理上一局的痕迹
func (p *Player) resetForHand() {
	p.Hand = nil
	p.CurrentBet = 0
	p.IsFolded = false
	p.HasSeen = false
	p.HasActed = false
	p.Vote = ""
	p.score = 0
}
