package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/report"
)

// RedisOptions configures the Redis-backed archive.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisArchive persists terminal results to Redis with a TTL.
type RedisArchive struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    logger.Logger
}

// NewRedisArchive creates a Redis-backed archive and verifies connectivity.
func NewRedisArchive(opts *RedisOptions, log logger.Logger) (*RedisArchive, error) {
	if opts == nil {
		return nil, errors.New("redis options cannot be nil")
	}
	if log == nil {
		log = logger.Discard
	}

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "smsprobe:archive:"
	}
	if opts.TTL == 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis archive connected", "addr", opts.Addr, "keyPrefix", opts.KeyPrefix)

	return &RedisArchive{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.TTL,
		logger:    log,
	}, nil
}

func (r *RedisArchive) testKey(testID string) string {
	return r.keyPrefix + "test:" + testID
}

func (r *RedisArchive) batchKey(batchID string) string {
	return r.keyPrefix + "batch:" + batchID
}

// StoreTest stores a single-test result.
func (r *RedisArchive) StoreTest(ctx context.Context, result *report.TestResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode test result: %w", err)
	}
	return r.client.Set(ctx, r.testKey(result.TestID), data, r.ttl).Err()
}

// StoreBatch stores a completed batch status.
func (r *RedisArchive) StoreBatch(ctx context.Context, status *report.BatchStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode batch status: %w", err)
	}
	return r.client.Set(ctx, r.batchKey(status.BatchID), data, r.ttl).Err()
}

// GetTest retrieves a single-test result by test ID.
func (r *RedisArchive) GetTest(ctx context.Context, testID string) (*report.TestResult, error) {
	data, err := r.client.Get(ctx, r.testKey(testID)).Bytes()
	if err == redis.Nil {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	var result report.TestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode test result: %w", err)
	}
	return &result, nil
}

// GetBatch retrieves a batch status by batch ID.
func (r *RedisArchive) GetBatch(ctx context.Context, batchID string) (*report.BatchStatus, error) {
	data, err := r.client.Get(ctx, r.batchKey(batchID)).Bytes()
	if err == redis.Nil {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	var status report.BatchStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode batch status: %w", err)
	}
	return &status, nil
}

// Close closes the Redis connection.
func (r *RedisArchive) Close() error {
	return r.client.Close()
}
