package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	Auction struct {
		RoundSeconds int `yaml:"round_seconds"`
		InboxSize    int `yaml:"inbox_size"`
		CodeDigits   int `yaml:"code_digits"`
	} `yaml:"auction"`

	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownSeconds int      `yaml:"shutdown_seconds"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Ledger struct {
		Enabled    bool `yaml:"enabled"`
		BufferSize int  `yaml:"buffer_size"`
	} `yaml:"ledger"`
}

func defaultConfig() *Config {
	var c Config
	c.Auction.RoundSeconds = coordinator.DefaultRoundSeconds
	c.Auction.CodeDigits = room.DefaultCodeDigits
	c.Server.Port = "8080"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ShutdownSeconds = 10
	c.Log.Level = "info"
	c.Log.Pretty = true
	c.NATS.URL = "nats://127.0.0.1:4222"
	c.NATS.Stream = "AUCTION_EVENTS"
	c.NATS.SubjectPrefix = "auction.events"
	c.Ledger.BufferSize = 64
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Auction.RoundSeconds = getEnvAsInt("AUCTION_ROUND_SECONDS", c.Auction.RoundSeconds)
	c.Auction.CodeDigits = getEnvAsInt("AUCTION_CODE_DIGITS", c.Auction.CodeDigits)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)
	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Ledger.Enabled = getEnvAsBool("LEDGER_ENABLED", c.Ledger.Enabled)
}

func (c *Config) validate() error {
	if c.Auction.RoundSeconds <= 0 {
		return fmt.Errorf("auction.round_seconds must be positive, got %d", c.Auction.RoundSeconds)
	}
	if c.Auction.CodeDigits < 1 || c.Auction.CodeDigits > 9 {
		return fmt.Errorf("auction.code_digits must be between 1 and 9, got %d", c.Auction.CodeDigits)
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
