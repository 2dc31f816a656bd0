package storage

import (
	"context"
	"strconv"

	"github.com/palemoky/seka/internal/apperrors"
)

// UserRecord 账号数据
type UserRecord struct {
	Username     string
	PasswordHash string
	Chips        int
	LastBonusDay string // "2006-01-02"，每日奖励的领取标记
}

// CreateUser 创建账号，用户名已存在时返回 ErrNameTaken
func (rs *RedisStore) CreateUser(ctx context.Context, username, passwordHash string, chips int) error {
	key := userKeyPrefix + username

	exists, err := rs.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return apperrors.ErrNameTaken
	}

	return rs.client.HSet(ctx, key, map[string]any{
		"password_hash": passwordHash,
		"chips":         chips,
		"last_bonus":    "",
	}).Err()
}

// GetUser 读取账号，不存在时返回 (nil, nil)
func (rs *RedisStore) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	data, err := rs.client.HGetAll(ctx, userKeyPrefix+username).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	chips, _ := strconv.Atoi(data["chips"])
	return &UserRecord{
		Username:     username,
		PasswordHash: data["password_hash"],
		Chips:        chips,
		LastBonusDay: data["last_bonus"],
	}, nil
}

// GetBalance 读取筹码余额，账号不存在时返回 0
func (rs *RedisStore) GetBalance(ctx context.Context, username string) (int, error) {
	val, err := rs.client.HGet(ctx, userKeyPrefix+username, "chips").Result()
	if err != nil {
		return 0, err
	}
	chips, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return chips, nil
}

// UpdateBalance 写入筹码余额
func (rs *RedisStore) UpdateBalance(ctx context.Context, username string, chips int) error {
	return rs.client.HSet(ctx, userKeyPrefix+username, "chips", chips).Err()
}

// ClaimDailyBonus 领取每日奖励。day 是当天日期（"2006-01-02"），
// 当天已领取时返回 false。
func (rs *RedisStore) ClaimDailyBonus(ctx context.Context, username, day string, bonus int) (bool, error) {
	key := userKeyPrefix + username

	last, err := rs.client.HGet(ctx, key, "last_bonus").Result()
	if err != nil {
		return false, err
	}
	if last == day {
		return false, nil
	}

	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, key, "last_bonus", day)
	pipe.HIncrBy(ctx, key, "chips", int64(bonus))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}
