package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Farm     FarmConfig     `mapstructure:"farm"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// APIConfig - Depined API client settings, applied to every account's client
type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, per account
	RateBurst       int           `mapstructure:"rate_burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"` // 0 = breaker disabled
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`  // must not exceed farm.min_interval
}

// FarmConfig - token source and polling bounds
type FarmConfig struct {
	TokensFile  string        `mapstructure:"tokens_file"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

type LogConfig struct {
	Dir         string `mapstructure:"dir"`
	FileEnabled bool   `mapstructure:"file_enabled"`
	Debug       bool   `mapstructure:"debug"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"` // empty = status server disabled
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Enabled reports whether epoch reports should go to Telegram.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// ParsedChatID returns ChatID as int64.
func (t TelegramConfig) ParsedChatID() (int64, error) {
	return strconv.ParseInt(t.ChatID, 10, 64)
}

// flag name -> config key
var flagBindings = map[string]string{
	"tokens-file":     "farm.tokens_file",
	"min-interval":    "farm.min_interval",
	"max-interval":    "farm.max_interval",
	"base-url":        "api.base_url",
	"request-timeout": "api.request_timeout",
	"max-retries":     "api.max_retries",
	"log-dir":         "log.dir",
	"log-file":        "log.file_enabled",
	"debug":           "log.debug",
	"metrics-addr":    "metrics.listen_addr",
}

// RegisterFlags declares the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file (default ./config.yaml if present)")
	fs.String("tokens-file", "./data.txt", "File with one bearer token per line (env: DEPINED_TOKENS_FILE)")
	fs.Duration("min-interval", 300*time.Millisecond, "Lower bound of the poll interval, also the error backoff (env: DEPINED_MIN_INTERVAL)")
	fs.Duration("max-interval", 2700*time.Millisecond, "Upper bound of the poll interval, also the setup-failure backoff (env: DEPINED_MAX_INTERVAL)")
	fs.String("base-url", "https://api.depined.org/api", "Depined API base URL (env: DEPINED_API_BASE_URL)")
	fs.Duration("request-timeout", 30*time.Second, "Per-request HTTP timeout (env: DEPINED_API_REQUEST_TIMEOUT)")
	fs.Int("max-retries", 0, "In-request retries for 429/5xx responses (env: DEPINED_API_MAX_RETRIES)")
	fs.String("log-dir", "logs", "Directory for app.log (env: DEPINED_LOG_DIR)")
	fs.Bool("log-file", true, "Write logs/app.log (env: DEPINED_LOG_FILE_ENABLED)")
	fs.Bool("debug", false, "Print debug lines to the console (env: DEPINED_LOG_DEBUG)")
	fs.String("metrics-addr", "", "Listen address for /healthz and /metrics, empty disables (env: DEPINED_METRICS_ADDR)")
}

// LoadConfig merges, lowest priority first:
// 1. defaults
// 2. config.yaml
// 3. .env file and environment
// 4. flags that were set explicitly
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	configPath := ""
	if flags != nil {
		configPath, _ = flags.GetString("config")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	setupEnvAliases(v)

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("api.base_url", "DEPINED_API_BASE_URL")
	v.BindEnv("api.request_timeout", "DEPINED_API_REQUEST_TIMEOUT")
	v.BindEnv("api.max_retries", "DEPINED_API_MAX_RETRIES")
	v.BindEnv("api.rate_limit", "DEPINED_API_RATE_LIMIT")
	v.BindEnv("api.rate_burst", "DEPINED_API_RATE_BURST")
	v.BindEnv("api.breaker_failures", "DEPINED_API_BREAKER_FAILURES")
	v.BindEnv("api.breaker_timeout", "DEPINED_API_BREAKER_TIMEOUT")

	v.BindEnv("farm.tokens_file", "DEPINED_TOKENS_FILE")
	v.BindEnv("farm.min_interval", "DEPINED_MIN_INTERVAL")
	v.BindEnv("farm.max_interval", "DEPINED_MAX_INTERVAL")

	v.BindEnv("log.dir", "DEPINED_LOG_DIR")
	v.BindEnv("log.file_enabled", "DEPINED_LOG_FILE_ENABLED")
	v.BindEnv("log.debug", "DEPINED_LOG_DEBUG")

	v.BindEnv("metrics.listen_addr", "DEPINED_METRICS_ADDR")

	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.depined.org/api")
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.max_retries", 0)
	v.SetDefault("api.rate_limit", 5.0)
	v.SetDefault("api.rate_burst", 3)
	v.SetDefault("api.breaker_failures", 0)
	v.SetDefault("api.breaker_timeout", 300*time.Millisecond)

	v.SetDefault("farm.tokens_file", "./data.txt")
	v.SetDefault("farm.min_interval", 300*time.Millisecond)
	v.SetDefault("farm.max_interval", 2700*time.Millisecond)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.file_enabled", true)
	v.SetDefault("log.debug", false)

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if cfg.Farm.TokensFile == "" {
		return fmt.Errorf("%w: farm.tokens_file is required", ErrInvalidConfig)
	}
	if cfg.Farm.MinInterval <= 0 {
		return fmt.Errorf("%w: farm.min_interval must be positive, got %s", ErrInvalidConfig, cfg.Farm.MinInterval)
	}
	if cfg.Farm.MaxInterval < cfg.Farm.MinInterval {
		return fmt.Errorf("%w: farm.max_interval (%s) is below farm.min_interval (%s)",
			ErrInvalidConfig, cfg.Farm.MaxInterval, cfg.Farm.MinInterval)
	}
	if cfg.API.MaxRetries < 0 {
		return fmt.Errorf("%w: api.max_retries must not be negative", ErrInvalidConfig)
	}
	if cfg.API.RateLimit <= 0 || cfg.API.RateBurst <= 0 {
		return fmt.Errorf("%w: api.rate_limit and api.rate_burst must be positive", ErrInvalidConfig)
	}
	// an open breaker must be half-open again by the next loop attempt
	if cfg.API.BreakerFailures > 0 && (cfg.API.BreakerTimeout <= 0 || cfg.API.BreakerTimeout > cfg.Farm.MinInterval) {
		return fmt.Errorf("%w: api.breaker_timeout (%s) must be positive and not exceed farm.min_interval (%s)",
			ErrInvalidConfig, cfg.API.BreakerTimeout, cfg.Farm.MinInterval)
	}
	if cfg.Telegram.Enabled() {
		if _, err := cfg.Telegram.ParsedChatID(); err != nil {
			return fmt.Errorf("%w: telegram.chat_id must be a numeric chat id when telegram.bot_token is set", ErrInvalidConfig)
		}
	}
	return nil
}
