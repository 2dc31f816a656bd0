package server

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/seka/internal/apperrors"
	"github.com/palemoky/seka/internal/protocol"
)

const (
	minPasswordLength = 4
	maxUsernameLength = 20
)

func (h *Handler) handleRegister(c *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.RegisterPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeAuth, "用户名不合法"))
		return
	}
	if len(payload.Password) < minPasswordLength {
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeAuth, "密码至少 4 位"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("密码哈希失败: %v", err)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	welcome := h.server.config.Game.WelcomeChips
	if err := h.server.store.CreateUser(ctx, username, string(hash), welcome); err != nil {
		var gameErr *apperrors.GameError
		if errors.As(err, &gameErr) {
			c.SendMessage(protocol.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
			return
		}
		log.Printf("创建账号 %s 失败: %v", username, err)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	log.Printf("📝 新账号 %s，赠送 %d 筹码", username, welcome)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgRegistered, protocol.RegisteredPayload{
		Username: username,
		Chips:    welcome,
	}))
}

func (h *Handler) handleLogin(c *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.LoginPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	username := strings.TrimSpace(payload.Username)
	user, err := h.server.store.GetUser(ctx, username)
	if err != nil {
		log.Printf("读取账号 %s 失败: %v", username, err)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)) != nil {
		sendGameError(c, apperrors.ErrBadCredentials)
		return
	}

	// 同名账号的旧连接被顶下线
	if old := h.server.clientByUsername(username); old != nil && old != c {
		log.Printf("⚠️ 账号 %s 在别处登录，断开旧连接 %s", username, old.ID)
		old.Close()
	}

	// 当天首次登录发奖励
	bonus := 0
	day := time.Now().Format("2006-01-02")
	claimed, err := h.server.store.ClaimDailyBonus(ctx, username, day, h.server.config.Game.DailyBonusChips)
	if err != nil {
		log.Printf("发放 %s 每日奖励失败: %v", username, err)
	} else if claimed {
		bonus = h.server.config.Game.DailyBonusChips
	}

	chips, err := h.server.store.GetBalance(ctx, username)
	if err != nil {
		log.Printf("读取 %s 余额失败: %v", username, err)
		chips = user.Chips
	}

	c.Username = username
	session := h.server.sessions.Create(username)

	log.Printf("🔑 %s 登录成功 (筹码 %d)", username, chips)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgLoggedIn, protocol.LoggedInPayload{
		Username:       username,
		Chips:          chips,
		DailyBonus:     bonus,
		ReconnectToken: session.ReconnectToken,
	}))
}

func (h *Handler) handleReconnect(c *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.ReconnectPayload](msg)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	session := h.server.sessions.Validate(payload.Username, payload.Token)
	if session == nil {
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeAuth, "重连令牌无效或已过期"))
		return
	}

	c.Username = session.Username

	// 还在牌桌上就把座位接回来
	if session.TableID != "" {
		if t, ok := h.server.registry.Get(session.TableID); ok {
			if res := t.AddPlayer(session.Username, c.ID); res.Success {
				c.SetTable(session.TableID)
			} else {
				h.server.sessions.SetTable(session.Username, "")
				session.TableID = ""
			}
		} else {
			h.server.sessions.SetTable(session.Username, "")
			session.TableID = ""
		}
	}

	log.Printf("🔄 %s 重连成功 (牌桌: %q)", session.Username, session.TableID)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgReconnected, protocol.ReconnectedPayload{
		Username: session.Username,
		TableID:  session.TableID,
	}))
}
