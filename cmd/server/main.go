package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/afes-website/manage-back/internal/admission"
	"github.com/afes-website/manage-back/internal/auth"
	"github.com/afes-website/manage-back/internal/config"
	"github.com/afes-website/manage-back/internal/database"
	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/handler/health"
	"github.com/afes-website/manage-back/internal/migrations"
	"github.com/afes-website/manage-back/internal/server"
	"github.com/afes-website/manage-back/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", len(applied))

	types := festival.GuestTypes(cfg.GuestTypes)
	clock := festival.SystemClock
	st := store.New(db, types, clock)

	if cfg.SeedDemo {
		if err := st.SeedDemo(ctx, logger); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	checks := map[string]health.Checker{"sqlite": health.CheckFunc(st.Ping)}
	deps := server.Deps{
		Store:      st,
		Admission:  admission.NewService(st, types, clock, logger),
		Reporter:   admission.NewReporter(st),
		Tokens:     auth.NewTokens(cfg.JWTSecret, cfg.JWTExpire, clock.Now),
		GuestTypes: types,
	}

	// --- Redis (optional) ---
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "idempotency_ttl", cfg.IdempotencyTTL)

		checks["redis"] = health.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		deps.Idempotency = rdb
		deps.IdempotencyTTL = cfg.IdempotencyTTL
	}
	deps.Health = health.NewHandler(logger, checks).Routes()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, deps)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
