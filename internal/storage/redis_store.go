package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	userKeyPrefix    = "user:"
	tableKeyPrefix   = "table:"
	sessionKeyPrefix = "session:"

	// 会话过期时间：断线后超过这个时间不再支持重连
	sessionExpiration = 2 * time.Hour
)

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// --- 牌桌目录 ---

// TableRecord 牌桌目录项（用于 Redis 序列化）。
// 只保存目录信息，实时牌局状态一律留在进程内存里。
type TableRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stake     int    `json:"stake"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// SaveTable 保存牌桌目录项
func (rs *RedisStore) SaveTable(ctx context.Context, rec *TableRecord) error {
	if rec == nil {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化牌桌数据失败: %w", err)
	}

	return rs.client.Set(ctx, tableKeyPrefix+rec.ID, data, 0).Err()
}

// LoadTables 加载全部牌桌目录项（启动时填充注册表）
func (rs *RedisStore) LoadTables(ctx context.Context) ([]TableRecord, error) {
	keys, err := rs.client.Keys(ctx, tableKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	records := make([]TableRecord, 0, len(keys))
	for _, key := range keys {
		data, err := rs.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var rec TableRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("反序列化牌桌数据失败: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DeleteTable 删除牌桌目录项
func (rs *RedisStore) DeleteTable(ctx context.Context, id string) error {
	return rs.client.Del(ctx, tableKeyPrefix+id).Err()
}

// --- 会话存储 ---

// SessionRecord 玩家会话（用于断线重连）
type SessionRecord struct {
	Username       string `json:"username"`
	ReconnectToken string `json:"token"`
	TableID        string `json:"table_id"`
	IsOnline       bool   `json:"is_online"`
	DisconnectedAt int64  `json:"disconnected_at,omitempty"`
}

// SaveSession 保存会话
func (rs *RedisStore) SaveSession(ctx context.Context, session *SessionRecord) error {
	data := map[string]any{
		"username":  session.Username,
		"token":     session.ReconnectToken,
		"table_id":  session.TableID,
		"is_online": session.IsOnline,
	}
	if session.DisconnectedAt != 0 {
		data["disconnected_at"] = session.DisconnectedAt
	}

	key := sessionKeyPrefix + session.Username
	if err := rs.client.HSet(ctx, key, data).Err(); err != nil {
		return err
	}
	return rs.client.Expire(ctx, key, sessionExpiration).Err()
}

// LoadSession 加载会话
func (rs *RedisStore) LoadSession(ctx context.Context, username string) (*SessionRecord, error) {
	data, err := rs.client.HGetAll(ctx, sessionKeyPrefix+username).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &SessionRecord{
		Username:       data["username"],
		ReconnectToken: data["token"],
		TableID:        data["table_id"],
		IsOnline:       data["is_online"] == "1",
	}, nil
}

// DeleteSession 删除会话
func (rs *RedisStore) DeleteSession(ctx context.Context, username string) error {
	return rs.client.Del(ctx, sessionKeyPrefix+username).Err()
}
