// Package config loads the server configuration file used by `convoflow
// serve`. YAML is the default format; files ending in .json are decoded as
// JSON. A missing file yields the defaults so the server can start with no
// configuration at all.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Redis holds the session-store settings.
type Redis struct {
	Addr   string `yaml:"addr" json:"addr"`
	DB     int    `yaml:"db" json:"db"`
	Prefix string `yaml:"prefix" json:"prefix"`
	// SessionTTL is a Go duration string ("24h", "30m"). Empty means no
	// expiry.
	SessionTTL string `yaml:"session_ttl" json:"session_ttl"`
}

// Server is the top-level configuration for the HTTP server.
type Server struct {
	Port     string `yaml:"port" json:"port"`
	Library  string `yaml:"library" json:"library"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	Metrics  bool   `yaml:"metrics" json:"metrics"`
	Redis    Redis  `yaml:"redis" json:"redis"`
}

// Default returns the configuration used when no file is present.
func Default() Server {
	return Server{
		Port:     "8080",
		LogLevel: "info",
		Redis:    Redis{Prefix: "convoflow:"},
	}
}

// Load reads the configuration at path, layered over the defaults. An empty
// path or a missing file returns the defaults without error.
func Load(path string) (Server, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return cfg, nil
}

// TTL parses the redis session TTL, or zero when unset or malformed.
func (r Redis) TTL() time.Duration {
	if r.SessionTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(r.SessionTTL)
	if err != nil {
		return 0
	}
	return d
}

// Level maps the configured log level onto slog's levels, defaulting to info.
func (s Server) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
