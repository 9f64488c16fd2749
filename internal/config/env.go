package config

import (
	"os"
	"strconv"
)

// FromEnv overlays QV_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("QV_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("QV_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("QV_SAMPLE_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SampleHorizon = n
		}
	}
	if v := os.Getenv("QV_CONNECT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConnectTimeoutMs = n
		}
	}
	if v := os.Getenv("QV_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("QV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QV_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
