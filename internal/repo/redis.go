package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

import (
	"github.com/redis/go-redis/v9"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/types"
)

// Key templates for better readability and maintainability
const (
	keyLatestTmpl = "%s:latest"
	keyWorkerTmpl = "%s:worker:{%d}"
)

// RedisRepo mirrors update events into Redis: the latest event is kept in a
// hash, every event is published on the updates channel and each worker's
// success count is tracked.
type RedisRepo struct {
	Prefix         string
	UpdateChannel  string
	Cli            redis.UniversalClient
	logger         *slog.Logger
	defaultTimeout time.Duration // Unified timeout config
}

// NewRedis with functional options for flexibility
func NewRedis(cfg config.RedisCfg, logger *slog.Logger, opts ...Option) (*RedisRepo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &RedisRepo{
		Prefix:         cfg.Prefix,
		UpdateChannel:  cfg.UpdatesChannel,
		logger:         logger,
		defaultTimeout: durationOrDefault(cfg.TimeoutMs, 100),
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}

	addrs := normalizeAddrs(cfg)
	if len(addrs) == 0 {
		return nil, errors.New("no redis addresses configured")
	}

	r.Cli = redis.NewUniversalClient(buildOptions(cfg, addrs))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Cli.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "err", err)
		_ = r.Cli.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	return r, nil
}

// Option pattern for custom configurations
type Option func(*RedisRepo)

func WithDefaultTimeout(d time.Duration) Option {
	return func(r *RedisRepo) { r.defaultTimeout = d }
}

// withTimeout helper to reduce repetition
func (r *RedisRepo) withTimeout(ctx context.Context, opTimeout time.Duration) (context.Context, context.CancelFunc) {
	if opTimeout == 0 {
		opTimeout = r.defaultTimeout
	}
	return context.WithTimeout(ctx, opTimeout)
}

func (r *RedisRepo) KeyLatest() string {
	return fmt.Sprintf(keyLatestTmpl, r.Prefix)
}

func (r *RedisRepo) KeyWorker(worker int) string {
	return fmt.Sprintf(keyWorkerTmpl, r.Prefix, worker)
}

// Name implements workload.Sink.
func (r *RedisRepo) Name() string { return "redis" }

// Publish stores ev as the latest update, bumps the worker counter and
// announces ev on the updates channel in one pipeline.
func (r *RedisRepo) Publish(parentCtx context.Context, ev types.UpdateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal update event: %w", err)
	}

	ctx, cancel := r.withTimeout(parentCtx, 0)
	defer cancel()
	_, err = r.Cli.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.KeyLatest(), latestFields(ev))
		p.Incr(ctx, r.KeyWorker(ev.Worker))
		p.Publish(ctx, r.UpdateChannel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish update generation %d failed: %w", ev.Generation, err)
	}
	return nil
}

// Latest reads back the hash written by Publish.
func (r *RedisRepo) Latest(parentCtx context.Context) (map[string]string, error) {
	ctx, cancel := r.withTimeout(parentCtx, 0)
	defer cancel()
	return r.Cli.HGetAll(ctx, r.KeyLatest()).Result()
}

// Close
func (r *RedisRepo) Close() error {
	return r.Cli.Close()
}

func latestFields(ev types.UpdateEvent) map[string]interface{} {
	return map[string]interface{}{
		"worker":     strconv.Itoa(ev.Worker),
		"generation": strconv.FormatUint(ev.Generation, 10),
		"mean":       strconv.FormatFloat(ev.Mean, 'f', -1, 64),
		"len":        strconv.Itoa(ev.Len),
		"variant":    ev.Variant,
		"at":         ev.At.UTC().Format(time.RFC3339Nano),
	}
}

// Helper functions
func normalizeAddrs(cfg config.RedisCfg) []string {
	if cfg.Addr == "" {
		return nil
	}
	parts := strings.Split(cfg.Addr, ",")
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func buildOptions(cfg config.RedisCfg, addrs []string) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     max(cfg.PoolSize, 10),
		DialTimeout:  durationOrDefault(cfg.TimeoutMs, 800),
		ReadTimeout:  durationOrDefault(cfg.TimeoutMs, 800),
		WriteTimeout: durationOrDefault(cfg.TimeoutMs, 800),
	}
}

func durationOrDefault(ms int, defMs int) time.Duration {
	if ms <= 0 {
		ms = defMs
	}
	return time.Duration(ms) * time.Millisecond
}
