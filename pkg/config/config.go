package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"SignalPull/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Disabled bool   `yaml:"disabled"`
		Path     string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Trace struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"service_name" default:"signalpull"`
	} `yaml:"trace"`
	Pipeline struct {
		Instruments     []string      `yaml:"instruments" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\"]"`
		IntervalSeconds int           `yaml:"interval_seconds" default:"1800"`
		RetryDelay      time.Duration `yaml:"retry_delay" default:"5s"`
		ParallelFetch   bool          `yaml:"parallel_fetch"`
	} `yaml:"pipeline"`
	Exchange struct {
		APIKey            string        `yaml:"api_key"`
		APISecret         string        `yaml:"api_secret"`
		Timeout           time.Duration `yaml:"timeout" default:"10s"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"600"`
		Burst             int           `yaml:"burst" default:"5"`
	} `yaml:"exchange"`
	Evaluator struct {
		OIThresholdPct  float64 `yaml:"oi_threshold_pct" default:"1.0"`
		ConfidenceScale float64 `yaml:"confidence_scale" default:"10.0"`
	} `yaml:"evaluator"`
	LLM struct {
		APIKey    string        `yaml:"api_key"`
		Model     string        `yaml:"model" default:"gpt-4o-mini"`
		BaseURL   string        `yaml:"base_url" default:"https://api.openai.com/v1"`
		MaxTokens int           `yaml:"max_tokens" default:"150"`
		Timeout   time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"llm"`
	Telegram struct {
		BotToken       string        `yaml:"bot_token"`
		ChatID         string        `yaml:"chat_id"`
		BaseURL        string        `yaml:"base_url" default:"https://api.telegram.org"`
		MaxRetries     int           `yaml:"max_retries" default:"3"`
		BackoffSeconds int           `yaml:"backoff_seconds" default:"2"`
		Timeout        time.Duration `yaml:"timeout" default:"6s"`
	} `yaml:"telegram"`
	Alert struct {
		MinConfidence int `yaml:"min_confidence"`
	} `yaml:"alert"`
	Redis struct {
		Disabled     bool          `yaml:"disabled"`
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		HistoryLimit int64         `yaml:"history_limit" default:"500"`
		SignalsLimit int64         `yaml:"signals_limit" default:"1000"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"signalpull.signals"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"default"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		Table        string        `yaml:"table" default:"oi_snapshots"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

// Default returns a config populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Interval is the pause between cycles.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalSeconds) * time.Second
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error; the process then runs on defaults and env.
func LoadWithEnv(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		if path != "" && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if c, err = Default(); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func readFile(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FETCH_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FETCH_INTERVAL_SECONDS: %w", err)
		}
		c.Pipeline.IntervalSeconds = n
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Pipeline.Instruments = util.SplitList(v)
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := getenv("BINANCE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Pipeline.IntervalSeconds <= 0 {
		return fmt.Errorf("pipeline.interval_seconds must be positive, got %d", c.Pipeline.IntervalSeconds)
	}
	if len(c.Pipeline.Instruments) == 0 {
		return fmt.Errorf("pipeline.instruments cannot be empty")
	}
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("telegram.max_retries must be at least 1, got %d", c.Telegram.MaxRetries)
	}
	if c.Telegram.BackoffSeconds < 0 {
		return fmt.Errorf("telegram.backoff_seconds cannot be negative")
	}
	if c.Alert.MinConfidence < 0 || c.Alert.MinConfidence > 100 {
		return fmt.Errorf("alert.min_confidence must be within 0..100, got %d", c.Alert.MinConfidence)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}
