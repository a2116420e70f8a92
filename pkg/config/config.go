package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	ChannelsFile  string        `mapstructure:"CHANNELS_FILE"`
	CrawlInterval time.Duration `mapstructure:"CRAWL_INTERVAL"`
	CrawlWorkers  int           `mapstructure:"CRAWL_WORKERS"`
	CycleTimeout  time.Duration `mapstructure:"CYCLE_TIMEOUT"`

	MaxAttempts    int           `mapstructure:"MAX_ATTEMPTS"`
	RetryBaseDelay time.Duration `mapstructure:"RETRY_BASE_DELAY"`
	RetryMaxDelay  time.Duration `mapstructure:"RETRY_MAX_DELAY"`

	FetchMode    string        `mapstructure:"FETCH_MODE"` // "http" or "browser"
	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	RateLimit    float64       `mapstructure:"RATE_LIMIT"` // requests per second, <= 0 disables
	HeadersFile  string        `mapstructure:"HEADERS_FILE"`
	Referer      string        `mapstructure:"REFERER"`
	UserAgents   string        `mapstructure:"USER_AGENTS"` // "|" separated
	Proxies      string        `mapstructure:"PROXIES"`     // "," separated

	Extractor    string `mapstructure:"EXTRACTOR"`
	StreamHost   string `mapstructure:"STREAM_HOST"`
	StreamParams string `mapstructure:"STREAM_PARAMS"` // "," separated

	PostgresURL   string        `mapstructure:"POSTGRES_URL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CycleLockTTL  time.Duration `mapstructure:"CYCLE_LOCK_TTL"`
}

var defaults = map[string]any{
	"SERVER_PORT":      "8080",
	"LOG_LEVEL":        "info",
	"CHANNELS_FILE":    "channels.yaml",
	"CRAWL_INTERVAL":   "10m",
	"CRAWL_WORKERS":    5,
	"CYCLE_TIMEOUT":    "60s",
	"MAX_ATTEMPTS":     3,
	"RETRY_BASE_DELAY": "300ms",
	"RETRY_MAX_DELAY":  "2s",
	"FETCH_MODE":       "http",
	"FETCH_TIMEOUT":    "8s",
	"RATE_LIMIT":       5.0,
	"HEADERS_FILE":     "",
	"REFERER":          "https://www.kds.tw/",
	"USER_AGENTS":      "",
	"PROXIES":          "",
	"EXTRACTOR":        "auto",
	"STREAM_HOST":      "cdn.inteltelevision.com",
	"STREAM_PARAMS":    "t,token",
	"POSTGRES_URL":     "",
	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"CYCLE_LOCK_TTL":   "2m",
}

// Load reads configuration from an optional file and environment variables.
// An empty path falls back to ".env" in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
	} else {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// The implicit .env may be absent so production can configure purely
	// through environment variables; an explicitly named file must load.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if path != "" || !missing {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UserAgentList returns the configured user agents, if any.
func (c *Config) UserAgentList() []string {
	return splitList(c.UserAgents, "|")
}

// ProxyList returns the configured proxy URLs, if any.
func (c *Config) ProxyList() []string {
	return splitList(c.Proxies, ",")
}

// StreamParamList returns the query parameters a stream URL must carry.
func (c *Config) StreamParamList() []string {
	return splitList(c.StreamParams, ",")
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
