// Package config provides configuration management for smsprobe.
package config

import (
	"regexp"
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/errors"
)

// SourceNumber is one sending identity under test, e.g. a toll-free number
// or a 10DLC number, with its provider application binding.
type SourceNumber struct {
	Name          string `json:"name"`
	Number        string `json:"number"`
	ApplicationID string `json:"application_id"`
}

// Destination is one test destination handset.
type Destination struct {
	Number  string `json:"number"`
	Carrier string `json:"carrier"`
}

// RedisOptions configures the optional Redis result archive.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Config is the main configuration for the probe service.
type Config struct {
	// Provider credentials.
	AccountID string
	APIToken  string
	APISecret string
	BaseURL   string

	// Test matrix inputs.
	Sources      []SourceNumber
	Destinations []Destination
	MediaURL     string

	// Wait timeouts. Text messages get the longer timeout; media delivery
	// confirmations are known to lag or go missing, so media waits are
	// shorter and degrade instead of hard-failing.
	SMSWaitTimeout time.Duration
	MMSWaitTimeout time.Duration
	// BatchTimeout bounds a whole batch and must strictly dominate both
	// single-test timeouts.
	BatchTimeout time.Duration

	HTTPAddr string

	Redis     *RedisOptions
	Telemetry observability.Config
}

// Option mutates a Config.
type Option func(*Config) error

// New builds a Config from defaults plus options.
func New(opts ...Option) (*Config, error) {
	cfg := Default()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SMSWaitTimeout: 120 * time.Second,
		MMSWaitTimeout: 60 * time.Second,
		BatchTimeout:   125 * time.Second,
		HTTPAddr:       ":8080",
		MediaURL:       "https://i.imgur.com/e3j2F0u.png",
		Telemetry: observability.Config{
			ServiceName:    "smsprobe",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			SampleRate:     1.0,
		},
	}
}

// Validate checks invariants the engine relies on.
func (c *Config) Validate() error {
	if c.SMSWaitTimeout <= 0 || c.MMSWaitTimeout <= 0 {
		return errors.New(errors.ErrInvalidConfig, "wait timeouts must be positive")
	}
	if c.BatchTimeout <= c.SMSWaitTimeout || c.BatchTimeout <= c.MMSWaitTimeout {
		return errors.New(errors.ErrInvalidConfig,
			"batch timeout must exceed every single-test timeout")
	}
	return nil
}

var destinationPattern = regexp.MustCompile(`(\+\d{11})\s*(?:\(([^)]+)\))?`)

// ParseDestinations parses a destination list of the form
// "+15551234567 (AT&T), +15557654321 (T-Mobile)". Carrier annotations are
// optional.
func ParseDestinations(raw string) []Destination {
	if raw == "" {
		return nil
	}
	var dests []Destination
	for _, match := range destinationPattern.FindAllStringSubmatch(raw, -1) {
		carrier := match[2]
		if carrier == "" {
			carrier = "N/A"
		}
		dests = append(dests, Destination{Number: match[1], Carrier: carrier})
	}
	return dests
}
