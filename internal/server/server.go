package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/seka/internal/config"
	"github.com/palemoky/seka/internal/game/table"
	"github.com/palemoky/seka/internal/protocol"
	"github.com/palemoky/seka/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 来源在升级前由 originChecker 校验
	},
}

// Server WebSocket 服务器
type Server struct {
	config   *config.Config
	redis    *redis.Client
	store    *storage.RedisStore
	registry *table.Registry
	sessions *SessionManager
	handler  *Handler

	rateLimiter    *RateLimiter
	messageLimiter *MessageRateLimiter
	chatLimiter    *ChatRateLimiter
	originChecker  *OriginChecker

	clients   map[string]*Client
	clientsMu sync.RWMutex
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	store := storage.NewRedisStore(rdb)

	s := &Server{
		config:   cfg,
		redis:    rdb,
		store:    store,
		sessions: NewSessionManager(store),
		clients:  make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDuration(),
		),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		chatLimiter: NewChatRateLimiter(
			cfg.Security.ChatLimit.MaxPerSecond,
			cfg.Security.ChatLimit.MaxPerMinute,
			cfg.Security.ChatLimit.CooldownDuration(),
		),
		originChecker: NewOriginChecker(cfg.Security.AllowedOrigins),
	}

	s.registry = table.NewRegistry(table.Deps{
		Broadcast:      s,
		Store:          &balanceStore{store: store},
		Timings:        cfg.Game.Timings(),
		MaxPlayers:     cfg.Game.MaxPlayers,
		MinBuyInFactor: cfg.Game.MinBuyInFactor,
	})
	s.handler = NewHandler(s)

	if err := s.restoreTables(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// restoreTables 从持久层恢复牌桌目录，目录为空时兜底建一张默认桌
func (s *Server) restoreTables(ctx context.Context) error {
	records, err := s.store.LoadTables(ctx)
	if err != nil {
		return fmt.Errorf("加载牌桌目录失败: %w", err)
	}

	for _, rec := range records {
		s.registry.Create(rec.ID, rec.Name, rec.Stake)
	}
	if len(records) > 0 {
		log.Printf("♻️ 已恢复 %d 张牌桌", len(records))
		return nil
	}

	t := s.registry.Create("", s.config.Game.DefaultTableName, s.config.Game.DefaultStake)
	err = s.store.SaveTable(ctx, &storage.TableRecord{
		ID:        t.ID,
		Name:      t.Name,
		Stake:     t.BaseStake,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("保存默认牌桌失败: %w", err)
	}
	log.Printf("🆕 已创建默认牌桌 %q (底注 %d)", t.Name, t.BaseStake)
	return nil
}

// persistTable 把牌桌目录项写入持久层，失败只记日志
func (s *Server) persistTable(t *table.Table, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := s.store.SaveTable(ctx, &storage.TableRecord{
		ID:        t.ID,
		Name:      t.Name,
		Stake:     t.BaseStake,
		Owner:     owner,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		log.Printf("保存牌桌 %s 失败: %v", t.ID, err)
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/health", s.handleHealth)

	log.Printf("🚀 服务器启动在 ws://%s/ws", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	if !s.originChecker.Check(r) {
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn)
	client.IP = clientIP
	s.registerClient(client)

	client.SendMessage(protocol.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ConnID: client.ID,
	}))

	log.Printf("✅ 新连接 %s (IP: %s)", client.ID, client.IP)

	go client.ReadPump()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		s.messageLimiter.RemoveClient(client.ID)
		s.chatLimiter.RemoveClient(client.ID)
		log.Printf("❌ 连接 %s 已断开", client.ID)
	}
}

// handleDisconnect 连接断开时通知所在牌桌并标记会话离线
func (s *Server) handleDisconnect(c *Client) {
	if tableID := c.GetTable(); tableID != "" {
		if t, ok := s.registry.Get(tableID); ok {
			t.HandleDisconnect(c.ID)
		}
	}
	if c.Username != "" {
		s.sessions.SetOffline(c.Username)
	}
}

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// clientByUsername 按用户名找已登录的连接
func (s *Server) clientByUsername(username string) *Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if c.Username == username {
			return c
		}
	}
	return nil
}

// --- table.Broadcaster 实现 ---

// BroadcastToTable 发送给指定牌桌的所有连接
func (s *Server) BroadcastToTable(tableID string, msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("构造广播消息失败: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if c.GetTable() == tableID {
			c.SendMessage(msg)
		}
	}
}

// SendToConnection 发送给单个连接
func (s *Server) SendToConnection(connID string, msgType protocol.MessageType, payload any) {
	s.clientsMu.RLock()
	c, ok := s.clients[connID]
	s.clientsMu.RUnlock()
	if !ok {
		return
	}

	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("构造消息失败: %v", err)
		return
	}
	c.SendMessage(msg)
}

// AnnounceGlobally 发送给所有连接（大厅人数等全局事件）
func (s *Server) AnnounceGlobally(msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("构造全局广播失败: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.SendMessage(msg)
	}
}

// Shutdown 关闭服务器
func (s *Server) Shutdown() {
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	_ = s.redis.Close()

	log.Println("服务器已关闭")
}

// balanceStore 把 RedisStore 适配成牌桌的余额接口。牌局不能被
// 持久层故障打断：读失败按 0 处理，写在后台重试一次后放弃。
type balanceStore struct {
	store *storage.RedisStore
}

func (b *balanceStore) GetBalance(username string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	chips, err := b.store.GetBalance(ctx, username)
	if err != nil {
		log.Printf("读取 %s 余额失败: %v", username, err)
		return 0
	}
	return chips
}

func (b *balanceStore) UpdateBalance(username string, chips int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := b.store.UpdateBalance(ctx, username, chips); err != nil {
			log.Printf("写入 %s 余额失败，重试一次: %v", username, err)
			if err := b.store.UpdateBalance(ctx, username, chips); err != nil {
				log.Printf("写入 %s 余额最终失败: %v", username, err)
			}
		}
	}()
}
