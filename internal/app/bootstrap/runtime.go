package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/slot-watch/internal/config"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/internal/store/postgres"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Storage is the set of stores one process works against.
type Storage struct {
	// Label names the backends for /health ("memory", "redis", "redis+postgres").
	Label         string
	Snapshots     store.SnapshotStore
	Subscriptions store.SubscriptionStore
	Notifications store.NotificationStore
	// RunLog is nil without DATABASE_URL.
	RunLog *postgres.RunLog

	closers []func()
}

// Close releases every connection opened by BuildStorage, newest first.
func (s *Storage) Close() {
	if s == nil {
		return
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildStorage selects the snapshot backend from STORE_BACKEND and, when
// DATABASE_URL is set, moves subscriptions, notifications and the sync run
// history to Postgres.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: storage requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}

	st := &Storage{}
	switch cfg.StoreBackend {
	case "", "memory":
		mem := store.NewMemory()
		st.Label = "memory"
		st.Snapshots, st.Subscriptions, st.Notifications = mem, mem, mem
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, fmt.Errorf("bootstrap: redis backend selected but %s is unreachable", cfg.RedisAddr)
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		rs := store.NewRedis(client)
		st.Label = "redis"
		st.Snapshots, st.Subscriptions, st.Notifications = rs, rs, rs
	default:
		return nil, fmt.Errorf("bootstrap: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return st, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	st.closers = append(st.closers, pool.Close)
	sqlDB := stdlib.OpenDBFromPool(pool)
	st.closers = append(st.closers, func() { _ = sqlDB.Close() })

	st.Label += "+postgres"
	st.Subscriptions = postgres.NewSubscriptionStore(pool)
	st.Notifications = postgres.NewNotificationStore(pool)
	st.RunLog = postgres.NewRunLog(sqlDB)
	logger.Info("postgres subscription store enabled")
	return st, nil
}
