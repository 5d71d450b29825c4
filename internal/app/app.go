// Package app connects the configured backing services and builds the
// loan service on top of them. Every binary under cmd/ starts here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/events"
	"github.com/segyhp/loanbook/internal/handler"
	"github.com/segyhp/loanbook/internal/lock"
	"github.com/segyhp/loanbook/internal/repository"
	"github.com/segyhp/loanbook/internal/service"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Store     *repository.Store
	Locker    lock.Locker
	Publisher events.Publisher
	Service   *service.LoanService
}

// New opens every enabled dependency and fails fast on the first one that is
// unreachable. Without a database DSN the book lives in memory.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(); err != nil {
		a.Close()
		return nil, err
	}

	a.Locker = a.newLocker()
	a.Service = service.NewLoanService(a.Store, a.Locker, a.Publisher, cfg, logger)

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	dsn := a.Config.Database.DSN()
	if dsn == "" {
		a.Logger.Warn("no database configured, using in-memory store; data is lost on restart")
		a.Store = repository.NewMemoryStore(repository.NewMemoryBackend())
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	db.SetMaxOpenConns(a.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(a.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(a.Config.Database.ConnMaxLifetime)
	a.DB = db

	if a.Config.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		a.Logger.Info("database schema applied")
	}

	a.Store = repository.NewPostgresStore(db)
	a.Logger.Info("connected to database", "host", a.Config.Database.Host)
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if !a.Config.Redis.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr(),
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connect redis at %s: %w", a.Config.Redis.Addr(), err)
	}

	a.Redis = client
	a.Logger.Info("connected to redis", "addr", a.Config.Redis.Addr())
	return nil
}

func (a *App) initPublisher() error {
	if !a.Config.Kafka.Enabled {
		a.Publisher = events.NopPublisher{}
		return nil
	}

	publisher, err := events.NewKafkaPublisher(
		a.Config.Kafka.BrokerList(),
		a.Config.Kafka.TopicPrefix,
		a.Config.Kafka.ConnectAttempts,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}

	a.Publisher = publisher
	return nil
}

func (a *App) newLocker() lock.Locker {
	if a.Config.Lock.Backend == config.LockBackendRedis {
		return lock.NewRedisLocker(a.Redis, a.Config.Lock.KeyPrefix, a.Config.Lock.TTL, a.Logger)
	}
	return lock.NewLocalLocker()
}

// HealthHandler builds the probes for whatever New actually connected.
func (a *App) HealthHandler() *handler.HealthHandler {
	var db handler.Pinger
	if a.DB != nil {
		db = a.DB
	}
	var rdb redis.UniversalClient
	if a.Redis != nil {
		rdb = a.Redis
	}
	return handler.NewHealthHandler(db, rdb, a.Config.Health.Timeout)
}

// Close releases every opened dependency. It is safe on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
