package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 1780, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.Game.MaxPlayers)
	assert.Equal(t, 5, cfg.Game.MinBuyInFactor)

	ti := cfg.Game.Timings()
	assert.Equal(t, 3*time.Second, ti.StartDelay)
	assert.Equal(t, 15*time.Second, ti.TurnTimeout)
	assert.Equal(t, 4*time.Second, ti.ShowdownDelay)
	assert.Equal(t, 8*time.Second, ti.DecisionDelay)
	assert.Equal(t, 10*time.Second, ti.VoteTimeout)
	assert.Equal(t, 2500*time.Millisecond, ti.CompareDelay)

	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 10, cfg.Security.RateLimit.MaxPerSecond)
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.BanDuration())
	assert.Equal(t, 20, cfg.Security.MessageLimit.MaxPerSecond)
	assert.Equal(t, 2, cfg.Security.ChatLimit.MaxPerSecond)
	assert.Equal(t, 5*time.Second, cfg.Security.ChatLimit.CooldownDuration())
}

func TestLoad(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9000
redis:
  addr: redis:6379
game:
  turn_timeout_ms: 5000
  max_players: 4
security:
  allowed_origins:
    - http://a.com
    - http://b.com
  chat_limit:
    max_per_second: 1
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, 5*time.Second, cfg.Game.Timings().TurnTimeout)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 1, cfg.Security.ChatLimit.MaxPerSecond)
	// Unset fields still get defaults
	assert.Equal(t, 3*time.Second, cfg.Game.Timings().StartDelay)
	assert.Equal(t, 120, cfg.Security.RateLimit.MaxPerMinute)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
