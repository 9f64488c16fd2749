package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Endpoint is the broker URL (redis://host:port[/db]).
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// Prefix overrides the broker key prefix.
	Prefix string `json:"prefix" yaml:"prefix"`
	// SampleHorizon bounds how many terminal jobs Metrics inspects.
	SampleHorizon int `json:"sampleHorizon" yaml:"sampleHorizon"`
	// ConnectTimeoutMs caps how long Connect waits for first ready/error.
	ConnectTimeoutMs int `json:"connectTimeoutMs" yaml:"connectTimeoutMs"`
	// HTTPAddr is the API listen address.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// LogLevel is debug|info|warn|error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// LogFormat is text|json.
	LogFormat string `json:"logFormat" yaml:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Endpoint:         "redis://127.0.0.1:6379",
		Prefix:           "bull",
		SampleHorizon:    100,
		ConnectTimeoutMs: 10_000,
		HTTPAddr:         ":8080",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects configurations no server can start from.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.SampleHorizon <= 0 {
		return fmt.Errorf("sampleHorizon must be positive")
	}
	if c.ConnectTimeoutMs <= 0 {
		return fmt.Errorf("connectTimeoutMs must be positive")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("httpAddr is required")
	}
	return nil
}
