package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceBinance  = "binance"
	SourceCoinbase = "coinbase"
)

type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Colors   ColorsConfig   `yaml:"colors"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type FeedConfig struct {
	Source   string        `yaml:"source"`
	Symbol   string        `yaml:"symbol"`
	Depth    int           `yaml:"depth"`
	Interval time.Duration `yaml:"interval"`
}

// ColorsConfig holds the highlight colours sent with cell updates.
type ColorsConfig struct {
	Bid     string        `yaml:"bid"`
	Ask     string        `yaml:"ask"`
	Neutral string        `yaml:"neutral"`
	Fade    time.Duration `yaml:"fade"`
}

type UpstreamConfig struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Coinbase CoinbaseConfig `yaml:"coinbase"`
}

type BinanceConfig struct {
	WSURL         string `yaml:"ws_url"`
	SnapshotURL   string `yaml:"snapshot_url"`
	SnapshotLimit int    `yaml:"snapshot_limit"`
}

type CoinbaseConfig struct {
	BookURL           string        `yaml:"book_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func defaultConfig() Config {
	var c Config
	c.Feed.Source = SourceBinance
	c.Feed.Symbol = "BTCUSDT"
	c.Feed.Depth = 10
	c.Feed.Interval = time.Second
	c.Colors.Bid = "#2ecc71"
	c.Colors.Ask = "#e74c3c"
	c.Colors.Neutral = "#ecf0f1"
	c.Colors.Fade = time.Second
	c.Upstream.Binance.WSURL = "wss://stream.binance.com:9443/ws"
	c.Upstream.Binance.SnapshotURL = "https://api.binance.com/api/v3/depth"
	c.Upstream.Binance.SnapshotLimit = 100
	c.Upstream.Coinbase.BookURL = "https://api.exchange.coinbase.com/products/%s/book?level=2"
	c.Upstream.Coinbase.RequestsPerSecond = 2
	c.Upstream.Coinbase.Burst = 1
	c.Upstream.Coinbase.Timeout = 5 * time.Second
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 5 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	return c
}

// LoadConfig reads defaults, then the YAML file at path (skipped when it does
// not exist), then DEPTHFEED_* environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.Feed.Source = strings.ToLower(strings.TrimSpace(cfg.Feed.Source))
	cfg.Feed.Symbol = strings.TrimSpace(cfg.Feed.Symbol)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DEPTHFEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}

	if v := os.Getenv("DEPTHFEED_SYMBOL"); v != "" {
		cfg.Feed.Symbol = v
	}

	if v := os.Getenv("DEPTHFEED_DEPTH"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DEPTHFEED_DEPTH: %w", err)
		}

		cfg.Feed.Depth = depth
	}

	if v := os.Getenv("DEPTHFEED_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DEPTHFEED_INTERVAL: %w", err)
		}

		cfg.Feed.Interval = interval
	}

	if v := os.Getenv("DEPTHFEED_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("DEPTHFEED_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Feed.Source != SourceBinance && cfg.Feed.Source != SourceCoinbase {
		return fmt.Errorf("feed.source must be %q or %q, got %q", SourceBinance, SourceCoinbase, cfg.Feed.Source)
	}

	if cfg.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol is required")
	}

	if cfg.Feed.Depth <= 0 {
		return fmt.Errorf("feed.depth must be greater than 0")
	}

	if cfg.Feed.Interval <= 0 {
		return fmt.Errorf("feed.interval must be greater than 0")
	}

	if cfg.Feed.Source == SourceBinance && cfg.Upstream.Binance.SnapshotLimit < cfg.Feed.Depth {
		return fmt.Errorf("upstream.binance.snapshot_limit must be at least feed.depth")
	}

	if cfg.Feed.Source == SourceCoinbase && cfg.Upstream.Coinbase.RequestsPerSecond <= 0 {
		return fmt.Errorf("upstream.coinbase.requests_per_second must be greater than 0")
	}

	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	return nil
}
