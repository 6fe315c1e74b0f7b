package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel     = "j-hartmann/emotion-english-distilroberta-base"
	DefaultMaxLength = 256
	DefaultThreshold = 0.6
)

// DefaultAlertEmotions are the labels that raise an alert when their score
// clears the threshold.
var DefaultAlertEmotions = []string{"anger", "fear", "sadness"}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Alerts     AlertConfig      `yaml:"alerts"`
	Hub        HubConfig        `yaml:"hub"`
	Limits     LimitsConfig     `yaml:"limits"`
	Log        LogConfig        `yaml:"log"`
	Demo       DemoConfig       `yaml:"demo"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" env:"CALLPULSE_PORT"`
	Host           string   `yaml:"host" env:"CALLPULSE_HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CALLPULSE_ALLOWED_ORIGINS"`
	AuthToken      string   `yaml:"auth_token" env:"CALLPULSE_AUTH_TOKEN"`
}

type ClassifierConfig struct {
	// Endpoint is the base URL of a text-classification inference server.
	// Empty selects the built-in lexicon classifier.
	Endpoint  string        `yaml:"endpoint" env:"CALLPULSE_CLASSIFIER_ENDPOINT"`
	Model     string        `yaml:"model" env:"CALLPULSE_CLASSIFIER_MODEL"`
	APIToken  string        `yaml:"api_token" env:"CALLPULSE_CLASSIFIER_API_TOKEN"`
	Timeout   time.Duration `yaml:"timeout" env:"CALLPULSE_CLASSIFIER_TIMEOUT"`
	MaxLength int           `yaml:"max_length" env:"CALLPULSE_CLASSIFIER_MAX_LENGTH"`
	CacheSize int           `yaml:"cache_size" env:"CALLPULSE_CLASSIFIER_CACHE_SIZE"`
}

type AlertConfig struct {
	Emotions  []string `yaml:"emotions" env:"CALLPULSE_ALERT_EMOTIONS"`
	Threshold float64  `yaml:"threshold" env:"CALLPULSE_ALERT_THRESHOLD"`
}

type HubConfig struct {
	SendBuffer   int           `yaml:"send_buffer" env:"CALLPULSE_SEND_BUFFER"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"CALLPULSE_WRITE_TIMEOUT"`
	PingInterval time.Duration `yaml:"ping_interval" env:"CALLPULSE_PING_INTERVAL"`
}

type LimitsConfig struct {
	ConnectionsPerSecond float64 `yaml:"connections_per_second" env:"CALLPULSE_CONNECTIONS_PER_SECOND"`
	ConnectionBurst      int     `yaml:"connection_burst" env:"CALLPULSE_CONNECTION_BURST"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"CALLPULSE_LOG_LEVEL"`
	Format string `yaml:"format" env:"CALLPULSE_LOG_FORMAT"`
}

type DemoConfig struct {
	Enabled  bool          `yaml:"enabled" env:"CALLPULSE_DEMO"`
	Interval time.Duration `yaml:"interval" env:"CALLPULSE_DEMO_INTERVAL"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		Classifier: ClassifierConfig{
			Model:     DefaultModel,
			Timeout:   5 * time.Second,
			MaxLength: DefaultMaxLength,
			CacheSize: 1024,
		},
		Alerts: AlertConfig{
			Emotions:  append([]string(nil), DefaultAlertEmotions...),
			Threshold: DefaultThreshold,
		},
		Hub: HubConfig{
			SendBuffer:   64,
			WriteTimeout: 5 * time.Second,
			PingInterval: 30 * time.Second,
		},
		Limits: LimitsConfig{
			ConnectionsPerSecond: 10,
			ConnectionBurst:      20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Demo: DemoConfig{
			Interval: 2 * time.Second,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. The file must exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("No config file found, using defaults", "path", path)
		return finish(defaultConfig())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	// List values such as CALLPULSE_ALERT_EMOTIONS are comma separated.
	if err := env.Load(cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if len(c.Alerts.Emotions) == 0 {
		return errors.New("alerts.emotions must not be empty")
	}
	if c.Alerts.Threshold < 0 || c.Alerts.Threshold > 1 {
		return fmt.Errorf("alerts.threshold %v must be within [0,1]", c.Alerts.Threshold)
	}
	if c.Classifier.MaxLength <= 0 {
		return fmt.Errorf("classifier.max_length must be positive, got %d", c.Classifier.MaxLength)
	}
	if c.Hub.SendBuffer <= 0 {
		return fmt.Errorf("hub.send_buffer must be positive, got %d", c.Hub.SendBuffer)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
