package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palemoky/seka/internal/storage"
)

// Session 一个已登录玩家的会话
type Session struct {
	Username       string
	ReconnectToken string
	TableID        string
	IsOnline       bool
}

// SessionManager 管理玩家会话。内存是权威数据，Redis 只作为
// 服务重启后支持重连的备份
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // username -> session
	store    *storage.RedisStore
}

// NewSessionManager 创建会话管理器
func NewSessionManager(store *storage.RedisStore) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// Create 登录成功后创建（或刷新）会话，返回重连令牌
func (sm *SessionManager) Create(username string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session := &Session{
		Username:       username,
		ReconnectToken: uuid.New().String(),
		IsOnline:       true,
	}
	sm.sessions[username] = session
	sm.persistLocked(session)
	return session
}

// Validate 校验重连令牌。内存没有时回退到 Redis（服务重启的场景）
func (sm *SessionManager) Validate(username, token string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[username]; ok {
		if session.ReconnectToken == token {
			session.IsOnline = true
			return session
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rec, err := sm.store.LoadSession(ctx, username)
	if err != nil || rec == nil || rec.ReconnectToken != token {
		return nil
	}

	session := &Session{
		Username:       rec.Username,
		ReconnectToken: rec.ReconnectToken,
		TableID:        rec.TableID,
		IsOnline:       true,
	}
	sm.sessions[username] = session
	return session
}

// SetTable 记录会话所在牌桌（离桌时传空串）
func (sm *SessionManager) SetTable(username, tableID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[username]; ok {
		session.TableID = tableID
		sm.persistLocked(session)
	}
}

// SetOffline 标记会话离线
func (sm *SessionManager) SetOffline(username string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[username]; ok {
		session.IsOnline = false
		sm.persistLocked(session)
	}
}

// Get 按用户名取会话
func (sm *SessionManager) Get(username string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[username]
}

// persistLocked 把会话备份到 Redis，失败只记日志
func (sm *SessionManager) persistLocked(session *Session) {
	rec := &storage.SessionRecord{
		Username:       session.Username,
		ReconnectToken: session.ReconnectToken,
		TableID:        session.TableID,
		IsOnline:       session.IsOnline,
	}
	if !session.IsOnline {
		rec.DisconnectedAt = time.Now().Unix()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := sm.store.SaveSession(ctx, rec); err != nil {
			log.Printf("备份会话 %s 失败: %v", rec.Username, err)
		}
	}()
}
