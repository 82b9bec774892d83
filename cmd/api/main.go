package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jaekwang-park/taskscribe/internal/config"
	taskhttp "github.com/jaekwang-park/taskscribe/internal/http"
	"github.com/jaekwang-park/taskscribe/internal/http/handler"
	"github.com/jaekwang-park/taskscribe/internal/ratelimit"
	"github.com/jaekwang-park/taskscribe/internal/repository"
	"github.com/jaekwang-park/taskscribe/internal/secrets"
	"github.com/jaekwang-park/taskscribe/internal/service"
	"github.com/jaekwang-park/taskscribe/internal/session"
	"github.com/jaekwang-park/taskscribe/internal/storage/badgerdb"
)

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

// stores bundles the repositories for the configured driver.
type stores struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	checks map[string]handler.Check
	closer io.Closer
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.StorageDriver {
	case "badger":
		db, err := badgerdb.Open(badgerdb.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.Path == "",
			SyncWrites: cfg.Badger.Path != "",
			Logger:     logger,
		})
		if err != nil {
			return stores{}, err
		}
		logger.Info("badger store opened", "path", cfg.Badger.Path, "in_memory", cfg.Badger.Path == "")
		return stores{
			users:  repository.NewBadgerUser(db),
			tasks:  repository.NewBadgerTask(db),
			closer: db,
		}, nil

	default:
		db, err := repository.NewDB(cfg.DB.DSN())
		if err != nil {
			return stores{}, err
		}
		logger.Info("database connected")
		if cfg.DB.AutoMigrate {
			if err := repository.Migrate(ctx, db); err != nil {
				db.Close()
				return stores{}, err
			}
			logger.Info("database schema applied")
		}
		return stores{
			users:  repository.NewPostgresUser(db),
			tasks:  repository.NewPostgresTask(db),
			checks: map[string]handler.Check{"database": db.PingContext},
			closer: db,
		}, nil
	}
}

func loadSecret(ctx context.Context, cfg config.Config) ([]byte, error) {
	var src secrets.Source = secrets.Static(cfg.Auth.JWTSecret)
	if cfg.Auth.JWTSecret == "" {
		ssmSrc, err := secrets.NewSSMSource(ctx, cfg.Auth.AWSRegion, cfg.Auth.SSMParameter)
		if err != nil {
			return nil, err
		}
		src = ssmSrc
	}
	secret, err := src.Secret(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing secret: %w", err)
	}
	return secret, nil
}

func newLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.Auth.RateLimit == 0 {
		logger.Warn("auth rate limiting disabled")
		return nil, func() {}, nil
	}
	if cfg.RedisURL == "" {
		return ratelimit.NewMemory(cfg.Auth.RateLimit), func() {}, nil
	}
	limiter, err := ratelimit.NewRedisFromURL(ctx, cfg.RedisURL, cfg.Auth.RateLimit)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis rate limiter connected")
	return limiter, func() { limiter.Close() }, nil
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"port", cfg.ServerPort,
		"storage_driver", cfg.StorageDriver,
		"log_level", cfg.LogLevel,
	)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.closer.Close()

	secret, err := loadSecret(ctx, cfg)
	if err != nil {
		return err
	}
	issuer, err := session.NewIssuer(secret)
	if err != nil {
		return err
	}

	// Services
	authSvc, err := service.NewAuthService(st.users, issuer, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	taskSvc := service.NewTaskService(st.tasks)

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// HTTP Server
	srv := taskhttp.NewServer(taskhttp.ServerConfig{
		Port:              cfg.ServerPort,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Limiter:           limiter,
		Resolver:          issuer,
		Registry:          registry,
	}, logger, taskhttp.Services{
		Auth:   authSvc,
		Tasks:  taskSvc,
		Checks: st.checks,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
