package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "cardbridge/backend/libs/config"
)

// Serial holds transport settings.
type Serial struct {
	Port         string        `yaml:"port" env:"BRIDGE_SERIAL_PORT"`
	BaudRate     int           `yaml:"baudRate" env:"BRIDGE_SERIAL_BAUD"`
	ReadTimeout  time.Duration `yaml:"readTimeout" env:"BRIDGE_SERIAL_READ_TIMEOUT"`
	PollInterval time.Duration `yaml:"pollInterval" env:"BRIDGE_POLL_INTERVAL"`
	MaxLineBytes int           `yaml:"maxLineBytes" env:"BRIDGE_MAX_LINE_BYTES"`
}

// Database holds store settings.
type Database struct {
	DSN              string        `yaml:"dsn" env:"BRIDGE_POSTGRES_DSN"`
	StatementTimeout time.Duration `yaml:"statementTimeout" env:"BRIDGE_STORE_TIMEOUT"`
	AutoMigrate      bool          `yaml:"autoMigrate" env:"BRIDGE_AUTO_MIGRATE"`
}

// Redis holds traffic journal settings. An empty Addr keeps the journal in memory.
type Redis struct {
	Addr        string `yaml:"addr" env:"BRIDGE_REDIS_ADDR"`
	Password    string `yaml:"password" env:"BRIDGE_REDIS_PASSWORD"`
	HistorySize int    `yaml:"historySize" env:"BRIDGE_HISTORY_SIZE"`
}

// HTTP holds console listener settings.
type HTTP struct {
	Port string `yaml:"port" env:"BRIDGE_HTTP_PORT"`
}

// Console holds operator auth settings. An empty JWTSecret leaves the console open.
type Console struct {
	JWTSecret    string        `yaml:"jwtSecret" env:"BRIDGE_JWT_SECRET"`
	PasswordHash string        `yaml:"passwordHash" env:"BRIDGE_OPERATOR_PASSWORD_HASH"`
	TokenTTL     time.Duration `yaml:"tokenTTL" env:"BRIDGE_TOKEN_TTL"`
}

// Config defines serial bridge configuration.
type Config struct {
	Serial   Serial   `yaml:"serial"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	HTTP     HTTP     `yaml:"http"`
	Console  Console  `yaml:"console"`
}

// Default returns configuration with every optional key at its default.
func Default() *Config {
	return &Config{
		Serial: Serial{
			BaudRate:     9600,
			ReadTimeout:  10 * time.Millisecond,
			PollInterval: 100 * time.Millisecond,
			MaxLineBytes: 4096,
		},
		Database: Database{
			StatementTimeout: 5 * time.Second,
			AutoMigrate:      true,
		},
		Redis: Redis{
			HistorySize: 200,
		},
		HTTP: HTTP{
			Port: "8090",
		},
		Console: Console{
			TokenTTL: time.Hour,
		},
	}
}

// Load uses shared config loader on top of defaults and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database DSN is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("config: serial baud rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %s", c.Serial.PollInterval)
	}
	if c.Serial.MaxLineBytes < 0 {
		return fmt.Errorf("config: max line bytes must not be negative, got %d", c.Serial.MaxLineBytes)
	}
	if c.Console.JWTSecret != "" && strings.TrimSpace(c.Console.PasswordHash) == "" {
		return errors.New("config: console password hash is required when a JWT secret is set")
	}
	return nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HistorySize returns the journal capacity.
func (c *Config) HistorySize() int {
	if c.Redis.HistorySize <= 0 {
		return 200
	}
	return c.Redis.HistorySize
}

// TokenTTL returns console token lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Console.TokenTTL <= 0 {
		return time.Hour
	}
	return c.Console.TokenTTL
}
