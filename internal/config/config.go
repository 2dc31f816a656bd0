package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置，所有时间以毫秒为单位写在配置文件里，
// 方便测试环境整体缩短。
type GameConfig struct {
	MaxPlayers       int `yaml:"max_players"`        // 每桌座位上限
	MinBuyInFactor   int `yaml:"min_buy_in_factor"`  // 最低买入 = 底注 × 该倍数
	StartDelayMs     int `yaml:"start_delay_ms"`     // 开局前等待
	TurnTimeoutMs    int `yaml:"turn_timeout_ms"`    // 行动超时
	ShowdownDelayMs  int `yaml:"showdown_delay_ms"`  // 摊牌展示时长
	DecisionDelayMs  int `yaml:"decision_delay_ms"`  // 赢家抉择窗口
	VoteTimeoutMs    int `yaml:"vote_timeout_ms"`    // 投票窗口
	FlexDelayMs      int `yaml:"flex_delay_ms"`      // 亮牌展示时长
	CompareDelayMs   int `yaml:"compare_delay_ms"`   // 看上家后的比较延迟
	DealAnimBaseMs   int `yaml:"deal_anim_base_ms"`  // 发牌动画基础时长
	DealAnimPerSeat  int `yaml:"deal_anim_per_seat"` // 发牌动画每座位增量（毫秒）
	WelcomeChips     int `yaml:"welcome_chips"`      // 注册奖励
	DailyBonusChips  int `yaml:"daily_bonus_chips"`  // 每日登录奖励
	DefaultTableName string `yaml:"default_table_name"` // 持久层为空时的兜底桌
	DefaultStake     int    `yaml:"default_stake"`
}

// SecurityConfig 限流与来源验证配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"` // "*" 表示放行全部
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`      // 升级请求（按 IP）
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`   // 消息吞吐（按连接）
	ChatLimit      ChatLimitConfig    `yaml:"chat_limit"`      // 聊天（按连接）
}

// RateLimitConfig 按 IP 的请求限流
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanSeconds   int `yaml:"ban_seconds"`
}

// BanDuration 返回封禁时长
func (c *RateLimitConfig) BanDuration() time.Duration {
	return time.Duration(c.BanSeconds) * time.Second
}

// MessageLimitConfig 按连接的消息限流
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// ChatLimitConfig 按连接的聊天限流
type ChatLimitConfig struct {
	MaxPerSecond    int `yaml:"max_per_second"`
	MaxPerMinute    int `yaml:"max_per_minute"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// CooldownDuration 返回聊天冷却时长
func (c *ChatLimitConfig) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Timings 牌桌状态机用到的全部延迟
type Timings struct {
	StartDelay      time.Duration
	TurnTimeout     time.Duration
	ShowdownDelay   time.Duration
	DecisionDelay   time.Duration
	VoteTimeout     time.Duration
	FlexDelay       time.Duration
	CompareDelay    time.Duration
	DealAnimBase    time.Duration
	DealAnimPerSeat time.Duration
}

// Timings 把毫秒配置换算成 time.Duration
func (c *GameConfig) Timings() Timings {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Timings{
		StartDelay:      ms(c.StartDelayMs),
		TurnTimeout:     ms(c.TurnTimeoutMs),
		ShowdownDelay:   ms(c.ShowdownDelayMs),
		DecisionDelay:   ms(c.DecisionDelayMs),
		VoteTimeout:     ms(c.VoteTimeoutMs),
		FlexDelay:       ms(c.FlexDelayMs),
		CompareDelay:    ms(c.CompareDelayMs),
		DealAnimBase:    ms(c.DealAnimBaseMs),
		DealAnimPerSeat: ms(c.DealAnimPerSeat),
	}
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 1780
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	g := &c.Game
	if g.MaxPlayers == 0 {
		g.MaxPlayers = 7
	}
	if g.MinBuyInFactor == 0 {
		g.MinBuyInFactor = 5
	}
	if g.StartDelayMs == 0 {
		g.StartDelayMs = 3000
	}
	if g.TurnTimeoutMs == 0 {
		g.TurnTimeoutMs = 15000
	}
	if g.ShowdownDelayMs == 0 {
		g.ShowdownDelayMs = 4000
	}
	if g.DecisionDelayMs == 0 {
		g.DecisionDelayMs = 8000
	}
	if g.VoteTimeoutMs == 0 {
		g.VoteTimeoutMs = 10000
	}
	if g.FlexDelayMs == 0 {
		g.FlexDelayMs = 5000
	}
	if g.CompareDelayMs == 0 {
		g.CompareDelayMs = 2500
	}
	if g.DealAnimBaseMs == 0 {
		g.DealAnimBaseMs = 1000
	}
	if g.DealAnimPerSeat == 0 {
		g.DealAnimPerSeat = 600
	}
	if g.WelcomeChips == 0 {
		g.WelcomeChips = 2000
	}
	if g.DailyBonusChips == 0 {
		g.DailyBonusChips = 1000
	}
	if g.DefaultTableName == "" {
		g.DefaultTableName = "Seka 100"
	}
	if g.DefaultStake == 0 {
		g.DefaultStake = 100
	}

	sec := &c.Security
	if len(sec.AllowedOrigins) == 0 {
		sec.AllowedOrigins = []string{"*"}
	}
	if sec.RateLimit.MaxPerSecond == 0 {
		sec.RateLimit.MaxPerSecond = 10
	}
	if sec.RateLimit.MaxPerMinute == 0 {
		sec.RateLimit.MaxPerMinute = 120
	}
	if sec.RateLimit.BanSeconds == 0 {
		sec.RateLimit.BanSeconds = 60
	}
	if sec.MessageLimit.MaxPerSecond == 0 {
		sec.MessageLimit.MaxPerSecond = 20
	}
	if sec.ChatLimit.MaxPerSecond == 0 {
		sec.ChatLimit.MaxPerSecond = 2
	}
	if sec.ChatLimit.MaxPerMinute == 0 {
		sec.ChatLimit.MaxPerMinute = 20
	}
	if sec.ChatLimit.CooldownSeconds == 0 {
		sec.ChatLimit.CooldownSeconds = 5
	}
}
