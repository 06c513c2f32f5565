package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full bot configuration.
type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	TonAPI      TonAPIConfig      `mapstructure:"tonapi"`
	DexScreener DexScreenerConfig `mapstructure:"dexscreener"`
	App         AppConfig         `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken                string  `mapstructure:"bot_token"`
	OwnerID                 int64   `mapstructure:"owner_id"`                  // user allowed to run /pinleaderboard etc.
	TrendingChannelID       int64   `mapstructure:"trending_channel_id"`       // channel holding the leaderboard message
	TrendingChannelUsername string  `mapstructure:"trending_channel_username"` // shown in leaderboard footer
	BookTrendingURL         string  `mapstructure:"book_trending_url"`         // inline button target on buy posts
	DefaultMinBuyTON        float64 `mapstructure:"default_min_buy_ton"`
}

type TonAPIConfig struct {
	Base            string `mapstructure:"base"`
	APIKey          string `mapstructure:"api_key"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
	MaxResponseSize int64  `mapstructure:"max_response_size"`
}

type DexScreenerConfig struct {
	Base           string `mapstructure:"base"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

type AppConfig struct {
	DBPath                     string  `mapstructure:"db_path"`
	PollIntervalSeconds        float64 `mapstructure:"poll_interval_seconds"`
	LeaderboardIntervalSeconds float64 `mapstructure:"leaderboard_interval_seconds"`
	LeaderboardWindowMinutes   int     `mapstructure:"leaderboard_window_minutes"`
	LeaderboardMessageID       int     `mapstructure:"leaderboard_message_id"` // reuse an existing message after restart
	DedupRetention             int     `mapstructure:"dedup_retention"`        // recent tx ids kept per token
	PollConcurrency            int     `mapstructure:"poll_concurrency"`       // in-flight upstream calls across pools
	PoolFetchLimit             int     `mapstructure:"pool_fetch_limit"`       // transactions fetched per pool per cycle
}

func (a AppConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds * float64(time.Second))
}

func (a AppConfig) LeaderboardInterval() time.Duration {
	return time.Duration(a.LeaderboardIntervalSeconds * float64(time.Second))
}

func (a AppConfig) LeaderboardWindow() time.Duration {
	return time.Duration(a.LeaderboardWindowMinutes) * time.Minute
}

// LoadConfig resolves configuration in order:
// defaults, config.yaml, .env file, environment, flags.
func LoadConfig() (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig() // optional file

	v.SetConfigType("env")
	v.SetConfigFile(".env")
	v.ReadInConfig() // optional file

	v.AutomaticEnv()

	setupEnvAliases(v)
	setupFlags(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setupEnvAliases(v *viper.Viper) {
	// Plain env names used by the original deployment.
	v.BindEnv("telegram.bot_token", "BOT_TOKEN")
	v.BindEnv("telegram.owner_id", "OWNER_ID")
	v.BindEnv("telegram.trending_channel_id", "TRENDING_CHANNEL_ID")
	v.BindEnv("telegram.trending_channel_username", "TRENDING_CHANNEL_USERNAME")
	v.BindEnv("telegram.book_trending_url", "BOOK_TRENDING_URL")
	v.BindEnv("telegram.default_min_buy_ton", "DEFAULT_MIN_BUY_TON")

	v.BindEnv("tonapi.base", "TONAPI_BASE")
	v.BindEnv("tonapi.api_key", "TONAPI_KEY")
	v.BindEnv("tonapi.request_timeout", "TONAPI_REQUEST_TIMEOUT")
	v.BindEnv("tonapi.max_retries", "TONAPI_MAX_RETRIES")
	v.BindEnv("tonapi.max_response_size", "TONAPI_MAX_RESPONSE_SIZE")

	v.BindEnv("dexscreener.base", "DEXSCREENER_BASE")
	v.BindEnv("dexscreener.request_timeout", "DEXSCREENER_REQUEST_TIMEOUT")

	v.BindEnv("app.db_path", "DB_PATH")
	v.BindEnv("app.poll_interval_seconds", "POLL_INTERVAL_SECONDS")
	v.BindEnv("app.leaderboard_interval_seconds", "LEADERBOARD_INTERVAL_SECONDS")
	v.BindEnv("app.leaderboard_window_minutes", "LEADERBOARD_WINDOW_MINUTES")
	v.BindEnv("app.leaderboard_message_id", "LEADERBOARD_MESSAGE_ID")
	v.BindEnv("app.dedup_retention", "DEDUP_RETENTION")
	v.BindEnv("app.poll_concurrency", "POLL_CONCURRENCY")
	v.BindEnv("app.pool_fetch_limit", "POOL_FETCH_LIMIT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.owner_id", 0)
	v.SetDefault("telegram.trending_channel_id", 0)
	v.SetDefault("telegram.trending_channel_username", "@SpyTonTrending")
	v.SetDefault("telegram.book_trending_url", "https://t.me/SpyTONTrndBot")
	v.SetDefault("telegram.default_min_buy_ton", 0.0)

	v.SetDefault("tonapi.base", "https://tonapi.io")
	v.SetDefault("tonapi.api_key", "")
	v.SetDefault("tonapi.request_timeout", 20)
	v.SetDefault("tonapi.max_retries", 3)
	v.SetDefault("tonapi.max_response_size", 10*1024*1024) // 10MB

	v.SetDefault("dexscreener.base", "https://api.dexscreener.com")
	v.SetDefault("dexscreener.request_timeout", 20)

	v.SetDefault("app.db_path", "spyton.db")
	v.SetDefault("app.poll_interval_seconds", 1.0)
	v.SetDefault("app.leaderboard_interval_seconds", 10.0)
	v.SetDefault("app.leaderboard_window_minutes", 15)
	v.SetDefault("app.leaderboard_message_id", 0)
	v.SetDefault("app.dedup_retention", 512)
	v.SetDefault("app.poll_concurrency", 4)
	v.SetDefault("app.pool_fetch_limit", 25)
}

func setupFlags(v *viper.Viper) {
	pflag.String("telegram.bot_token", "", "Telegram bot token (env: BOT_TOKEN)")
	pflag.Int64("telegram.owner_id", 0, "Owner user id for admin commands (env: OWNER_ID)")
	pflag.Int64("telegram.trending_channel_id", 0, "Trending channel id (env: TRENDING_CHANNEL_ID)")
	pflag.String("telegram.trending_channel_username", "@SpyTonTrending", "Trending channel username (env: TRENDING_CHANNEL_USERNAME)")
	pflag.String("telegram.book_trending_url", "https://t.me/SpyTONTrndBot", "Booking link for buy posts (env: BOOK_TRENDING_URL)")
	pflag.Float64("telegram.default_min_buy_ton", 0.0, "Default min buy in TON for new groups (env: DEFAULT_MIN_BUY_TON)")

	pflag.String("tonapi.base", "https://tonapi.io", "TonAPI base URL (env: TONAPI_BASE)")
	pflag.String("tonapi.api_key", "", "TonAPI bearer key (env: TONAPI_KEY)")
	pflag.Int("tonapi.request_timeout", 20, "TonAPI request timeout in seconds (env: TONAPI_REQUEST_TIMEOUT)")
	pflag.Int("tonapi.max_retries", 3, "Max retries for TonAPI requests (env: TONAPI_MAX_RETRIES)")

	pflag.String("dexscreener.base", "https://api.dexscreener.com", "DexScreener base URL (env: DEXSCREENER_BASE)")
	pflag.Int("dexscreener.request_timeout", 20, "DexScreener request timeout in seconds (env: DEXSCREENER_REQUEST_TIMEOUT)")

	pflag.String("app.db_path", "spyton.db", "SQLite database path (env: DB_PATH)")
	pflag.Float64("app.poll_interval_seconds", 1.0, "Pool polling interval in seconds (env: POLL_INTERVAL_SECONDS)")
	pflag.Float64("app.leaderboard_interval_seconds", 10.0, "Leaderboard edit interval in seconds (env: LEADERBOARD_INTERVAL_SECONDS)")
	pflag.Int("app.leaderboard_window_minutes", 15, "Leaderboard rolling window in minutes (env: LEADERBOARD_WINDOW_MINUTES)")
	pflag.Int("app.leaderboard_message_id", 0, "Existing leaderboard message id to reuse (env: LEADERBOARD_MESSAGE_ID)")
	pflag.Int("app.dedup_retention", 512, "Recent tx ids kept per token for dedup (env: DEDUP_RETENTION)")
	pflag.Int("app.poll_concurrency", 4, "Max in-flight pool fetches (env: POLL_CONCURRENCY)")
	pflag.Int("app.pool_fetch_limit", 25, "Transactions fetched per pool per cycle (env: POOL_FETCH_LIMIT)")

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)
}

func validateConfig(cfg *Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing telegram.bot_token (BOT_TOKEN)")
	}
	if cfg.Telegram.OwnerID == 0 {
		return fmt.Errorf("missing telegram.owner_id (OWNER_ID)")
	}
	if cfg.Telegram.TrendingChannelID == 0 {
		return fmt.Errorf("missing telegram.trending_channel_id (TRENDING_CHANNEL_ID)")
	}
	if cfg.App.PollIntervalSeconds <= 0 {
		return fmt.Errorf("app.poll_interval_seconds must be positive")
	}
	if cfg.App.LeaderboardIntervalSeconds <= 0 {
		return fmt.Errorf("app.leaderboard_interval_seconds must be positive")
	}
	return nil
}
