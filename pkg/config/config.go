// Package config loads tonseq settings from YAML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/james-see/tonseq/pkg/api"
	"github.com/james-see/tonseq/pkg/cache"
	"github.com/james-see/tonseq/pkg/scale"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// Config holds every setting a config file can carry
type Config struct {
	Key      string  `yaml:"key"`
	Scale    string  `yaml:"scale"`
	Octave   int     `yaml:"octave"`
	Duration float64 `yaml:"duration"`
	Redo     int     `yaml:"redo"`

	// Tonnetz space as [minor, major, fourth]
	Space []int `yaml:"space"`

	Cache    CacheConfig  `yaml:"cache"`
	Server   ServerConfig `yaml:"server"`
	Tempo    float64      `yaml:"tempo"`
	LogLevel string       `yaml:"log_level"`
}

// CacheConfig sizes the pattern cache
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port        int           `yaml:"port"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`
}

// Default returns the built-in settings
func Default() *Config {
	s := tonnetz.DefaultSpace
	return &Config{
		Key:      "C",
		Scale:    scale.DefaultName,
		Duration: 0.25,
		Redo:     1,
		Space:    []int{s.Minor, s.Major, s.Fourth},
		Cache: CacheConfig{
			Capacity: cache.DefaultCapacity,
			TTL:      cache.DefaultTTL,
		},
		Server: ServerConfig{
			Port:        8080,
			SessionTTL:  api.DefaultSessionTTL,
			MaxSessions: api.DefaultMaxSessions,
		},
		Tempo:    120,
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, rejecting unknown fields
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later
func (c *Config) Validate() error {
	if _, err := scale.KeyRoot(c.Key); err != nil {
		return fmt.Errorf("key: %w", err)
	}
	if _, err := scale.Resolve(c.Scale); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	if _, err := c.TonnetzSpace(); err != nil {
		return err
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("tempo must be positive, got %v", c.Tempo)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be at least 1, got %d", c.Server.MaxSessions)
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("session ttl must not be negative, got %v", c.Server.SessionTTL)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// TonnetzSpace returns the configured space
func (c *Config) TonnetzSpace() (tonnetz.Space, error) {
	if len(c.Space) != 3 {
		return tonnetz.Space{}, fmt.Errorf("space needs three steps, got %v", c.Space)
	}
	s := tonnetz.Space{Minor: c.Space[0], Major: c.Space[1], Fourth: c.Space[2]}
	return s, s.Validate()
}

// SequenceOptions returns the evaluation options for new engines
func (c *Config) SequenceOptions() sequence.Options {
	return sequence.Options{
		Key:      c.Key,
		Scale:    c.Scale,
		Octave:   c.Octave,
		Duration: c.Duration,
		Redo:     c.Redo,
	}
}

// Level parses LogLevel
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
