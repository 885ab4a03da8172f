// Package config provides functional options for smsprobe configuration.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/errors"
)

// WithCredentials sets the provider account credentials.
func WithCredentials(accountID, apiToken, apiSecret string) Option {
	return func(cfg *Config) error {
		if accountID == "" || apiToken == "" || apiSecret == "" {
			return errors.New(errors.ErrMissingConfig, "account id, api token, and api secret are required")
		}
		cfg.AccountID = accountID
		cfg.APIToken = apiToken
		cfg.APISecret = apiSecret
		return nil
	}
}

// WithBaseURL overrides the provider API endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *Config) error {
		cfg.BaseURL = url
		return nil
	}
}

// WithSource adds a sending identity to the test matrix.
func WithSource(name, number, applicationID string) Option {
	return func(cfg *Config) error {
		if number == "" || applicationID == "" {
			return errors.Newf(errors.ErrMissingConfig, "source %s needs a number and application id", name)
		}
		cfg.Sources = append(cfg.Sources, SourceNumber{
			Name:          name,
			Number:        number,
			ApplicationID: applicationID,
		})
		return nil
	}
}

// WithDestinations parses and sets the destination list.
func WithDestinations(raw string) Option {
	return func(cfg *Config) error {
		cfg.Destinations = ParseDestinations(raw)
		return nil
	}
}

// WithTimeouts sets the single-test and batch timeouts.
func WithTimeouts(sms, mms, batch time.Duration) Option {
	return func(cfg *Config) error {
		cfg.SMSWaitTimeout = sms
		cfg.MMSWaitTimeout = mms
		cfg.BatchTimeout = batch
		return nil
	}
}

// WithMediaURL sets the media reference attached to MMS test sends.
func WithMediaURL(url string) Option {
	return func(cfg *Config) error {
		cfg.MediaURL = url
		return nil
	}
}

// WithHTTPAddr sets the HTTP listen address.
func WithHTTPAddr(addr string) Option {
	return func(cfg *Config) error {
		cfg.HTTPAddr = addr
		return nil
	}
}

// WithRedisArchive enables the Redis result archive.
func WithRedisArchive(opts RedisOptions) Option {
	return func(cfg *Config) error {
		if opts.Addr == "" {
			return errors.New(errors.ErrMissingConfig, "redis archive needs an address")
		}
		cfg.Redis = &opts
		return nil
	}
}

// WithTelemetry enables OpenTelemetry export.
func WithTelemetry(tcfg observability.Config) Option {
	return func(cfg *Config) error {
		cfg.Telemetry = tcfg
		return nil
	}
}

// LoadFromEnv builds a Config from environment variables, mirroring the
// deployment convention: provider credentials, one toll-free and one 10DLC
// source, and an annotated destination list.
func LoadFromEnv() (*Config, error) {
	opts := []Option{
		WithCredentials(
			os.Getenv("BANDWIDTH_ACCOUNT_ID"),
			os.Getenv("BANDWIDTH_API_TOKEN"),
			os.Getenv("BANDWIDTH_API_SECRET"),
		),
		WithDestinations(os.Getenv("DESTINATION_NUMBERS")),
	}

	if num := os.Getenv("TF_NUMBER"); num != "" {
		opts = append(opts, WithSource("TF", num, os.Getenv("TF_APP_ID")))
	}
	if num := os.Getenv("TEN_DLC_NUMBER"); num != "" {
		opts = append(opts, WithSource("10DLC", num, os.Getenv("TEN_DLC_APP_ID")))
	}

	if addr := os.Getenv("SMSPROBE_HTTP_ADDR"); addr != "" {
		opts = append(opts, WithHTTPAddr(addr))
	}
	if url := os.Getenv("SMSPROBE_MEDIA_URL"); url != "" {
		opts = append(opts, WithMediaURL(url))
	}

	if addr := os.Getenv("SMSPROBE_REDIS_ADDR"); addr != "" {
		db := 0
		if rawDB := os.Getenv("SMSPROBE_REDIS_DB"); rawDB != "" {
			parsed, err := strconv.Atoi(rawDB)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrInvalidConfig, "invalid SMSPROBE_REDIS_DB")
			}
			db = parsed
		}
		opts = append(opts, WithRedisArchive(RedisOptions{
			Addr:     addr,
			Password: os.Getenv("SMSPROBE_REDIS_PASSWORD"),
			DB:       db,
		}))
	}

	if endpoint := os.Getenv("SMSPROBE_OTLP_ENDPOINT"); endpoint != "" {
		tcfg := Default().Telemetry
		tcfg.Enabled = true
		tcfg.OTLPEndpoint = endpoint
		if env := os.Getenv("SMSPROBE_ENVIRONMENT"); env != "" {
			tcfg.Environment = env
		}
		opts = append(opts, WithTelemetry(tcfg))
	}

	return New(opts...)
}
