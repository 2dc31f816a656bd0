package server

import (
	"log"
	"strings"
	"time"

	"github.com/palemoky/seka/internal/apperrors"
	"github.com/palemoky/seka/internal/protocol"
)

// 聊天消息长度上限（按字符计）
const maxChatLength = 200

// Handler 消息处理器
type Handler struct {
	server *Server
}

// NewHandler 创建处理器
func NewHandler(s *Server) *Handler {
	return &Handler{server: s}
}

// Handle 处理消息
func (h *Handler) Handle(c *Client, msg *protocol.Message) {
	switch msg.Type {
	// 连接操作
	case protocol.MsgPing:
		h.handlePing(c, msg)
	case protocol.MsgRegister:
		h.handleRegister(c, msg)
	case protocol.MsgLogin:
		h.handleLogin(c, msg)
	case protocol.MsgReconnect:
		h.handleReconnect(c, msg)

	// 大厅操作
	case protocol.MsgGetLobby:
		h.handleGetLobby(c)
	case protocol.MsgCreateTable:
		h.handleCreateTable(c, msg)
	case protocol.MsgJoinTable:
		h.handleJoinTable(c, msg)

	// 牌桌操作
	case protocol.MsgChat:
		h.handleChat(c, msg)
	case protocol.MsgPlayerAction:
		h.handlePlayerAction(c, msg)

	default:
		log.Printf("⚠️  未知消息类型: '%s' (连接: %s)", msg.Type, c.ID)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
	}
}

// sendGameError 把预定义错误回给连接
func sendGameError(c *Client, e *apperrors.GameError) {
	c.SendMessage(protocol.NewErrorMessageWithText(e.Code, e.Message))
}

// requireLogin 校验连接已登录，未登录时回错误
func (h *Handler) requireLogin(c *Client) bool {
	if c.Username == "" {
		sendGameError(c, apperrors.ErrNotLoggedIn)
		return false
	}
	return true
}

func (h *Handler) handlePing(c *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	c.SendMessage(protocol.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

func (h *Handler) handleGetLobby(c *Client) {
	c.SendMessage(protocol.MustNewMessage(protocol.MsgLobbyList, protocol.LobbyListPayload{
		Tables: h.server.registry.List(),
	}))
}

func (h *Handler) handleCreateTable(c *Client, msg *protocol.Message) {
	if !h.requireLogin(c) {
		return
	}

	payload, err := protocol.ParsePayload[protocol.CreateTablePayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = c.Username + " 的牌桌"
	}
	stake := payload.Stake
	if stake <= 0 {
		stake = h.server.config.Game.DefaultStake
	}

	t := h.server.registry.Create("", name, stake)
	go h.server.persistTable(t, c.Username)

	log.Printf("🆕 %s 创建牌桌 %q (底注 %d)", c.Username, t.Name, t.BaseStake)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgTableCreated, protocol.TableSummary{
		ID:         t.ID,
		Name:       t.Name,
		Stake:      t.BaseStake,
		Players:    0,
		MaxPlayers: h.server.config.Game.MaxPlayers,
	}))
	// 大厅里的其他人立刻看到新桌
	h.server.AnnounceGlobally(protocol.MsgLobbyList, protocol.LobbyListPayload{
		Tables: h.server.registry.List(),
	})
}

func (h *Handler) handleJoinTable(c *Client, msg *protocol.Message) {
	if !h.requireLogin(c) {
		return
	}

	payload, err := protocol.ParsePayload[protocol.JoinTablePayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if c.GetTable() != "" {
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "请先离开当前牌桌"))
		return
	}

	t, ok := h.server.registry.Get(payload.TableID)
	if !ok {
		sendGameError(c, apperrors.ErrTableNotFound)
		return
	}

	res := t.AddPlayer(c.Username, c.ID)
	if !res.Success {
		c.SendMessage(protocol.NewErrorMessageWithText(res.ErrCode, res.Msg))
		return
	}

	c.SetTable(t.ID)
	h.server.sessions.SetTable(c.Username, t.ID)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgTableJoined, protocol.TableJoinedPayload{
		TableID:     t.ID,
		IsReconnect: res.IsReconnect,
	}))
	// 入座后单独推一次全量状态，广播可能先于 TableID 绑定发出
	c.SendMessage(protocol.MustNewMessage(protocol.MsgGameState, t.PublicState()))
}

func (h *Handler) handleChat(c *Client, msg *protocol.Message) {
	if !h.requireLogin(c) {
		return
	}

	tableID := c.GetTable()
	if tableID == "" {
		sendGameError(c, apperrors.ErrNotAtTable)
		return
	}

	payload, err := protocol.ParsePayload[protocol.ChatPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > maxChatLength {
		text = string(runes[:maxChatLength])
	}

	if allowed, reason := h.server.chatLimiter.AllowChat(c.ID); !allowed {
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeRateLimit, reason))
		return
	}

	h.server.BroadcastToTable(tableID, protocol.MsgChatRelay, protocol.ChatRelayPayload{
		Username: c.Username,
		Text:     text,
	})
}

func (h *Handler) handlePlayerAction(c *Client, msg *protocol.Message) {
	if !h.requireLogin(c) {
		return
	}

	tableID := c.GetTable()
	if tableID == "" {
		sendGameError(c, apperrors.ErrNotAtTable)
		return
	}

	payload, err := protocol.ParsePayload[protocol.PlayerActionPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	t, ok := h.server.registry.Get(tableID)
	if !ok {
		c.SetTable("")
		sendGameError(c, apperrors.ErrTableNotFound)
		return
	}

	t.HandleAction(c.ID, *payload)

	if payload.Kind == protocol.ActionLeave {
		c.SetTable("")
		h.server.sessions.SetTable(c.Username, "")
	}
}
