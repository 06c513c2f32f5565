package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := newDefaultConfig(t)

	assert.Equal(t, "https://tonapi.io", cfg.TonAPI.Base)
	assert.Equal(t, "https://api.dexscreener.com", cfg.DexScreener.Base)
	assert.Equal(t, 1.0, cfg.App.PollIntervalSeconds)
	assert.Equal(t, 10.0, cfg.App.LeaderboardIntervalSeconds)
	assert.Equal(t, 15, cfg.App.LeaderboardWindowMinutes)
	assert.Equal(t, 512, cfg.App.DedupRetention)
	assert.Equal(t, 25, cfg.App.PoolFetchLimit)
	assert.Equal(t, "@SpyTonTrending", cfg.Telegram.TrendingChannelUsername)
}

func TestEnvAliases(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "42")
	t.Setenv("TRENDING_CHANNEL_ID", "-1001234567890")
	t.Setenv("POLL_INTERVAL_SECONDS", "2.5")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	setupEnvAliases(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Telegram.OwnerID)
	assert.Equal(t, int64(-1001234567890), cfg.Telegram.TrendingChannelID)
	assert.Equal(t, 2.5, cfg.App.PollIntervalSeconds)
	require.NoError(t, validateConfig(&cfg))
}

func TestValidateRejectsMissingToken(t *testing.T) {
	cfg := newDefaultConfig(t)
	cfg.Telegram.OwnerID = 1
	cfg.Telegram.TrendingChannelID = -100

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	cfg := newDefaultConfig(t)
	cfg.Telegram.BotToken = "x"
	cfg.Telegram.OwnerID = 1
	cfg.Telegram.TrendingChannelID = -100
	cfg.App.PollIntervalSeconds = 0

	require.Error(t, validateConfig(cfg))
}

func TestDurationHelpers(t *testing.T) {
	cfg := newDefaultConfig(t)
	assert.Equal(t, "1s", cfg.App.PollInterval().String())
	assert.Equal(t, "10s", cfg.App.LeaderboardInterval().String())
	assert.Equal(t, "15m0s", cfg.App.LeaderboardWindow().String())
}
