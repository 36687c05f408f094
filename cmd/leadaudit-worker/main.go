package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"leadaudit/internal/broadcast"
	"leadaudit/internal/config"
	"leadaudit/internal/migrate"
	"leadaudit/internal/queue"
	"leadaudit/internal/scraper"
	"leadaudit/internal/server"
	"leadaudit/internal/store"
	"leadaudit/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	queueName := flag.String("queue", "leads", "BullMQ queue name to consume")
	flag.Parse()

	// Local development convenience; absent files are fine.
	godotenv.Load()

	cfg := config.Load(*configPath)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	logger = logger.With("worker_id", uuid.NewString())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.DSN == "" {
		log.Fatalf("no database DSN configured (set DATABASE_URL)")
	}

	// Run migrations on a short-lived connection
	if err := migrate.Run(rootCtx, cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	pool, err := pgxpool.New(rootCtx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(rootCtx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(rootCtx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}

	sc := scraper.New(scraper.Options{
		TimeoutMs:     cfg.Scraper.TimeoutMs,
		UserAgent:     cfg.Scraper.UserAgent,
		RespectRobots: cfg.Robots.Respect,
		Logger:        logger,
	})
	defer sc.Close()

	st := store.New(pool, logger)
	bc := broadcast.New(cfg.Backend.URL, logger)
	q := queue.NewAdapter(rdb, *queueName, logger)

	if cfg.Server.Enabled {
		srv := server.New(cfg, pool, rdb, logger)
		go func() {
			if err := srv.Listen(); err != nil {
				logger.Error("ops server failed", "error", err)
			}
		}()
		defer srv.Shutdown()
	}

	w := worker.New(q, sc, st, bc, logger)
	logger.Info("starting lead audit worker", "queue", *queueName, "backend", cfg.Backend.URL)
	if err := w.Start(rootCtx); err != nil && err != context.Canceled {
		log.Fatalf("worker stopped: %v", err)
	}
}
