package server

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter 按 IP 限制升级请求频率，超限封禁一段时间
type RateLimiter struct {
	mu      sync.Mutex
	records map[string]*ipRate

	maxPerSecond int
	maxPerMinute int
	banDuration  time.Duration
}

type ipRate struct {
	secondCount int
	minuteCount int
	secondMark  time.Time
	minuteMark  time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建 IP 限流器，并启动过期记录清理协程
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		records:      make(map[string]*ipRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		banDuration:  banDuration,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow 记一次请求并判断是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rec, ok := rl.records[ip]
	if !ok {
		rl.records[ip] = &ipRate{
			secondCount: 1,
			minuteCount: 1,
			secondMark:  now,
			minuteMark:  now,
		}
		return true
	}

	if now.Before(rec.bannedUntil) {
		return false
	}

	if now.Sub(rec.secondMark) >= time.Second {
		rec.secondCount = 0
		rec.secondMark = now
	}
	if now.Sub(rec.minuteMark) >= time.Minute {
		rec.minuteCount = 0
		rec.minuteMark = now
	}

	rec.secondCount++
	rec.minuteCount++

	if rec.secondCount > rl.maxPerSecond || rec.minuteCount > rl.maxPerMinute {
		rec.bannedUntil = now.Add(rl.banDuration)
		log.Printf("⚠️ IP %s 请求过于频繁，封禁 %v", ip, rl.banDuration)
		return false
	}
	return true
}

// IsBanned 查询 IP 是否在封禁期内
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.records[ip]
	return ok && time.Now().Before(rec.bannedUntil)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, rec := range rl.records {
			if now.Sub(rec.minuteMark) > 10*time.Minute && now.After(rec.bannedUntil) {
				delete(rl.records, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// --- 消息限流 ---

// MessageRateLimiter 按连接限制消息吞吐，反复超速的连接由调用方断开
type MessageRateLimiter struct {
	mu      sync.Mutex
	records map[string]*messageRate

	maxPerSecond     int
	warningThreshold int
}

type messageRate struct {
	count     int
	lastReset time.Time
	warnings  int
}

// NewMessageRateLimiter 创建消息限流器
func NewMessageRateLimiter(maxPerSecond int) *MessageRateLimiter {
	return &MessageRateLimiter{
		records:          make(map[string]*messageRate),
		maxPerSecond:     maxPerSecond,
		warningThreshold: maxPerSecond / 2,
	}
}

// AllowMessage 记一条消息。超限时 allowed=false；接近上限时
// allowed=true 但带 warning，给客户端一个减速的机会
func (ml *MessageRateLimiter) AllowMessage(connID string) (allowed, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := time.Now()
	rec, ok := ml.records[connID]
	if !ok {
		ml.records[connID] = &messageRate{count: 1, lastReset: now}
		return true, false
	}

	if now.Sub(rec.lastReset) >= time.Second {
		rec.count = 1
		rec.lastReset = now
		return true, false
	}

	rec.count++
	if rec.count > ml.maxPerSecond {
		rec.warnings++
		return false, true
	}
	if rec.count > ml.warningThreshold {
		return true, true
	}
	return true, false
}

// WarningCount 连接累计的超速次数
func (ml *MessageRateLimiter) WarningCount(connID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	rec, ok := ml.records[connID]
	if !ok {
		return 0
	}
	return rec.warnings
}

// RemoveClient 连接断开后清掉它的计数
func (ml *MessageRateLimiter) RemoveClient(connID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.records, connID)
}

// --- 聊天限流 ---

// ChatRateLimiter 按连接限制聊天频率，超速进入冷却期
type ChatRateLimiter struct {
	mu      sync.Mutex
	records map[string]*chatRate

	maxPerSecond int
	maxPerMinute int
	cooldown     time.Duration
}

type chatRate struct {
	secondCount   int
	minuteCount   int
	secondMark    time.Time
	minuteMark    time.Time
	cooldownUntil time.Time
}

// NewChatRateLimiter 创建聊天限流器
func NewChatRateLimiter(maxPerSecond, maxPerMinute int, cooldown time.Duration) *ChatRateLimiter {
	return &ChatRateLimiter{
		records:      make(map[string]*chatRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		cooldown:     cooldown,
	}
}

// AllowChat 记一条聊天消息，拒绝时返回给用户看的原因
func (cl *ChatRateLimiter) AllowChat(connID string) (allowed bool, reason string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	rec, ok := cl.records[connID]
	if !ok {
		cl.records[connID] = &chatRate{
			secondCount: 1,
			minuteCount: 1,
			secondMark:  now,
			minuteMark:  now,
		}
		return true, ""
	}

	if now.Before(rec.cooldownUntil) {
		return false, "冷静一下，稍后再发言"
	}

	if now.Sub(rec.secondMark) >= time.Second {
		rec.secondCount = 0
		rec.secondMark = now
	}
	if now.Sub(rec.minuteMark) >= time.Minute {
		rec.minuteCount = 0
		rec.minuteMark = now
	}

	rec.secondCount++
	rec.minuteCount++

	if rec.secondCount > cl.maxPerSecond || rec.minuteCount > cl.maxPerMinute {
		rec.cooldownUntil = now.Add(cl.cooldown)
		return false, "发言太快啦，进入冷却期"
	}
	return true, ""
}

// RemoveClient 连接断开后清掉它的计数
func (cl *ChatRateLimiter) RemoveClient(connID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.records, connID)
}

// --- 来源验证 ---

// OriginChecker 校验 WebSocket 升级请求的 Origin 头
type OriginChecker struct {
	allowed  map[string]bool
	allowAll bool
}

// NewOriginChecker 创建来源验证器，列表里出现 "*" 表示放行全部
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]bool)}
	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowed[strings.ToLower(origin)] = true
	}
	return oc
}

// Check 校验请求来源。无 Origin 头视为同源或本地客户端，放行
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return oc.allowed[strings.ToLower(origin)]
}

// GetClientIP 取客户端真实 IP，优先看代理头
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
