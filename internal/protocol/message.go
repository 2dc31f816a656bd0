package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 账号与连接
	MsgRegister  MessageType = "register"  // 注册账号
	MsgLogin     MessageType = "login"     // 登录
	MsgReconnect MessageType = "reconnect" // 断线重连
	MsgPing      MessageType = "ping"      // 心跳 ping

	// 大厅操作
	MsgGetLobby    MessageType = "get_lobby"    // 获取牌桌列表
	MsgCreateTable MessageType = "create_table" // 创建牌桌
	MsgJoinTable   MessageType = "join_table"   // 加入牌桌
	MsgChat        MessageType = "chat"         // 聊天消息

	// 游戏操作（具体动作在 payload 的 kind 字段里）
	MsgPlayerAction MessageType = "player_action"
)

// 服务端 → 客户端 消息类型
const (
	// 账号与连接
	MsgConnected   MessageType = "connected"   // 连接成功
	MsgRegistered  MessageType = "registered"  // 注册成功
	MsgLoggedIn    MessageType = "logged_in"   // 登录成功
	MsgReconnected MessageType = "reconnected" // 重连成功
	MsgPong        MessageType = "pong"        // 心跳 pong

	// 大厅相关
	MsgLobbyList    MessageType = "lobby_list"    // 牌桌列表
	MsgLobbyCount   MessageType = "lobby_count"   // 某桌人数变化
	MsgTableCreated MessageType = "table_created" // 新桌已创建
	MsgTableJoined  MessageType = "table_joined"  // 加入牌桌成功
	MsgLeftTable    MessageType = "left_table"    // 离开牌桌成功

	// 游戏流程
	MsgGameState      MessageType = "game_state"      // 公开状态快照
	MsgYourCards      MessageType = "your_cards"      // 私发自己的手牌
	MsgRevealHand     MessageType = "reveal_hand"     // 私发他人手牌（看上家动作）
	MsgShowdownReveal MessageType = "showdown_reveal" // 公开摊牌
	MsgDealAnim       MessageType = "deal_anim"       // 发牌动画
	MsgActionAnim     MessageType = "action_anim"     // 下注/弃牌动画
	MsgRoundWinner    MessageType = "round_winner"    // 一局结束
	MsgSystem         MessageType = "system_msg"      // 系统提示
	MsgChatRelay      MessageType = "chat_msg"        // 聊天广播

	// 错误
	MsgError MessageType = "error"
)

// Encode 将消息编码为 JSON 字节
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode 从 JSON 字节解码消息
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewMessage 创建一个新消息
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	msg := &Message{Type: msgType}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType MessageType, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *Message {
	return MustNewMessage(MsgError, ErrorPayload{
		Code:    code,
		Message: ErrorMessages[code],
	})
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *Message {
	return MustNewMessage(MsgError, ErrorPayload{
		Code:    code,
		Message: text,
	})
}
