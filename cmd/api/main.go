// Package main - точка входа REST API движка оценок.
//
// API отдаёт бюллетени, диагностику навыков и планы достижения целевой
// средней. Хранилище учебных планов выбирается через DB_DRIVER:
// postgres в продакшене, sqlite для локального запуска, memory для демо.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campus-hub/grade-engine/config"
	"github.com/campus-hub/grade-engine/internal/application/command"
	"github.com/campus-hub/grade-engine/internal/application/query"
	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/memory"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/redis"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/campus-hub/grade-engine/internal/interface/http"
	"github.com/campus-hub/grade-engine/internal/interface/http/handlers"
	"github.com/campus-hub/grade-engine/pkg/circuitbreaker"
	"github.com/campus-hub/grade-engine/pkg/logger"
	"github.com/campus-hub/grade-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting grade engine API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("driver", string(cfg.Database.Driver)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ УЧЕБНЫХ ПЛАНОВ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. КЕШ ОТЧЁТОВ (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var reportCache grading.ReportCache
	var cachePinger handlers.Pinger

	if !cfg.Redis.Disabled {
		rc, closeCache, err := openReportCache(ctx, cfg, log)
		if err != nil {
			// Без кеша сервис работает, просто медленнее.
			log.Warn("report cache unavailable, serving uncached", logger.Err(err))
		} else {
			defer closeCache()
			reportCache = rc
			cachePinger = rc
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ОБРАБОТЧИКИ (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	bulletins := query.NewGetBulletinHandler(store.repo, reportCache, log)

	deps := httpapi.Dependencies{
		GetBulletin:        bulletins,
		GetStudentBulletin: query.NewGetStudentBulletinHandler(bulletins),
		DiagnoseSkills:     query.NewDiagnoseSkillsHandler(store.repo, reportCache, log),
		SimulateTarget:     query.NewSimulateTargetHandler(store.repo, cfg.Engine.DefaultTargetAverage, log),
		InvalidateReports:  command.NewInvalidateReportsHandler(reportCache, store.repo, log),
		Logger:             log,
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.PingCheck(store.pinger))
	if cachePinger != nil {
		health.AddOptionalCheck("report_cache", handlers.PingCheck(cachePinger))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes
	serverCfg.Version = cfg.App.Version

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ОЖИДАНИЕ СИГНАЛА И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("grade engine API stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SETUP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Development = cfg.Observability.LogFormat == "console"
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

// openedStore - выбранная реализация curriculum.Repository и её закрытие.
type openedStore struct {
	repo   curriculum.Repository
	pinger handlers.Pinger
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*openedStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, log)
	case config.DriverMemory:
		s := memory.NewStore()
		memory.SeedDemo(s)
		log.Warn("using in-memory demo store",
			logger.StudentID(memory.DemoStudentID),
			logger.EnrollmentID(memory.DemoEnrollmentID),
		)
		return &openedStore{repo: s, pinger: s, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*openedStore, error) {
	pgCfg := postgres.DefaultConfig(cfg.Database.URL)
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(min(cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns))
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to database...")

	// База может подниматься вместе с сервисом (docker compose), поэтому
	// первое подключение повторяем с нарастающей паузой.
	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	conn, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	repo := postgres.NewCurriculumRepository(conn)
	return &openedStore{
		repo:   repo,
		pinger: repo,
		close: func() {
			log.Info("closing database connection...")
			conn.Close()
		},
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, log *logger.Logger) (*openedStore, error) {
	s, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Info("sqlite store opened",
		logger.String("path", cfg.Database.SQLitePath),
		logger.Int("schema_version", version),
	)

	repo := sqlite.NewCurriculumRepository(s)
	return &openedStore{
		repo:   repo,
		pinger: repo,
		close: func() {
			if err := s.Close(); err != nil {
				log.Warn("failed to close sqlite store", logger.Err(err))
			}
		},
	}, nil
}

func openReportCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.ReportCache, func(), error) {
	redisCfg := redis.DefaultConfig()
	redisCfg.URL = cfg.Redis.URL
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	log.Info("connecting to Redis...", logger.String("addr", cfg.Redis.Addr()))
	cache, err := redis.NewCache(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}

	breaker := circuitbreaker.ReportCacheBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.Component(name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	log.Info("Redis connection established")

	closeFn := func() {
		if err := cache.Close(); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("failed to close Redis", logger.Err(err))
		}
	}
	return redis.NewReportCache(cache, breaker, cfg.Engine.ReportCacheTTL), closeFn, nil
}
