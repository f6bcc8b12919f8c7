// Package config provides configuration management functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aristath/allocator/internal/modules/optimization"
)

// Config holds application configuration
type Config struct {
	LogLevel         string
	Port             int
	DevMode          bool   // human-readable console logs
	CandidatesFile   string // predictions CSV produced by the ranking model
	EngineConfigFile string // optional YAML overrides for the engine parameters
	Engine           optimization.Params
	Yahoo            YahooConfig
}

// YahooConfig controls the market data client's circuit breaker.
type YahooConfig struct {
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("PORT", 5000),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		CandidatesFile:   getEnv("CANDIDATES_FILE", "nifty_200_final_predictions.csv"),
		EngineConfigFile: getEnv("ENGINE_CONFIG", ""),
		Yahoo: YahooConfig{
			BreakerFailures: uint32(getEnvAsInt("YAHOO_BREAKER_FAILURES", 3)),
			BreakerTimeout:  time.Duration(getEnvAsInt("YAHOO_BREAKER_TIMEOUT_SECONDS", 60)) * time.Second,
		},
	}

	engine, err := LoadEngineParams(cfg.EngineConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEngineParams reads engine parameters from a YAML file. An empty path
// yields the defaults; keys absent from the file keep their defaults.
func LoadEngineParams(path string) (optimization.Params, error) {
	if path == "" {
		return optimization.WithDefaults(optimization.Params{})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return optimization.Params{}, fmt.Errorf("failed to read engine config: %w", err)
	}

	// Decode over the defaults so an explicit zero in the file is kept.
	params := optimization.DefaultParams()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return optimization.Params{}, fmt.Errorf("failed to parse engine config %s: %w", path, err)
	}

	if err := params.Validate(); err != nil {
		return optimization.Params{}, err
	}
	return params, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.CandidatesFile == "" {
		return fmt.Errorf("CANDIDATES_FILE is required")
	}
	if c.Yahoo.BreakerFailures == 0 {
		return fmt.Errorf("YAHOO_BREAKER_FAILURES must be positive")
	}
	return c.Engine.Validate()
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
