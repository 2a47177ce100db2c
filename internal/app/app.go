// Package app wires the storage, cache, broker, carrier and reconciliation layers
// shared by track-api and track-worker.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BearBump/trackrecon/config"
	"github.com/BearBump/trackrecon/internal/broker/kafka"
	"github.com/BearBump/trackrecon/internal/cache/rediscache"
	"github.com/BearBump/trackrecon/internal/integrations/carrier/registry"
	"github.com/BearBump/trackrecon/internal/services/executor"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"github.com/BearBump/trackrecon/internal/services/trackings"
	"github.com/BearBump/trackrecon/internal/services/updater"
	"github.com/BearBump/trackrecon/internal/storage/pgstore"
	"github.com/pkg/errors"
)

type Deps struct {
	Cfg          *config.Config
	Store        *pgstore.Storage
	Cache        *rediscache.StateCache
	Registry     *registry.Registry
	Executor     *executor.Executor
	Producer     *kafka.Producer
	Updater      *updater.Updater
	Orchestrator *reconcile.Orchestrator
	Service      *trackings.Service

	closers []func() error
}

// SetupLogger installs a JSON slog handler as the process default.
func SetupLogger(level string) *slog.Logger {
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(l)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func PostgresDSN(db config.DatabaseConfig) string {
	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.DBName, sslMode)
}

func RedisAddr(r config.RedisConfig) string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func KafkaBrokers(k config.KafkaConfig) []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func PlannerConfig(s config.ServiceConfig) updater.PlannerConfig {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return updater.PlannerConfig{
		TerminalDelay: sec(s.NextCheckTerminalSeconds),
		ActiveDelay:   sec(s.NextCheckActiveSeconds),
		ActiveJitter:  sec(s.NextCheckJitterSeconds),
		Backoff1:      sec(s.Backoff1Seconds),
		Backoff2:      sec(s.Backoff2Seconds),
		Backoff3:      sec(s.Backoff3Seconds),
		Backoff4:      sec(s.Backoff4Seconds),
	}
}

func ReconcileConfig(s config.SyncConfig) reconcile.Config {
	return reconcile.Config{
		BatchSize: s.BatchSize,
		PageSize:  s.PageSize,
		Staleness: time.Duration(s.StalenessSeconds) * time.Second,
		LockTTL:   time.Duration(s.LockTTLSeconds) * time.Second,
	}
}

// Build opens every backing service. On error the already opened ones are closed.
func Build(ctx context.Context, cfg *config.Config) (*Deps, error) {
	d := &Deps{Cfg: cfg}

	st, err := pgstore.New(ctx, PostgresDSN(cfg.Database))
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	d.Store = st
	d.closers = append(d.closers, func() error { st.Close(); return nil })

	redisAddr := RedisAddr(cfg.Redis)
	d.Cache = rediscache.NewStateCache(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)
	lock := rediscache.NewLock(redisAddr)
	d.closers = append(d.closers, d.Cache.Close, rl.Close, lock.Close)
	// кэш необязателен: сервис работает и без него, только медленнее
	if err := d.Cache.Ping(ctx); err != nil {
		slog.Warn("state cache unavailable", "addr", redisAddr, "error", err.Error())
	}

	d.Producer = kafka.NewProducer(KafkaBrokers(cfg.Kafka))
	d.closers = append(d.closers, d.Producer.Close)

	d.Registry = registry.FromConfig(cfg.Carriers, cfg.Sync, cfg.Service.FakeCarriers)
	d.Executor = executor.New(rl, time.Duration(cfg.Sync.FetchTimeoutSeconds)*time.Second)

	d.Updater = updater.New(st, d.Cache, d.Producer, cfg.Kafka.TrackingUpdatedTopicName, cfg.Sync.FailureThreshold).
		WithPlanner(updater.NewPlanner(PlannerConfig(cfg.Service), nil))

	d.Orchestrator = reconcile.New(st, d.Registry, d.Executor, d.Updater, lock, ReconcileConfig(cfg.Sync))

	d.Service = trackings.New(st, d.Registry, d.Executor, d.Updater, d.Orchestrator, d.Cache,
		time.Duration(cfg.Service.CurrentStatusTTLSeconds)*time.Second).
		WithMaxBatch(cfg.Sync.MaxTrackBatch)

	slog.Info("dependencies ready",
		"carriers", len(d.Registry.Codes()),
		"fake_carriers", cfg.Service.FakeCarriers,
		"redis", redisAddr,
	)
	return d, nil
}

// Close releases resources in reverse order of opening.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("close dependency", "error", err.Error())
		}
	}
	d.closers = nil
}
