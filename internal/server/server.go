// Package server exposes the worker's health and metrics endpoints.
// The worker itself serves no traffic; this surface exists so the
// deployment can probe and scrape it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"leadaudit/internal/config"
	"leadaudit/internal/metrics"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, pool *pgxpool.Pool, rdb redis.UniversalClient, logger *slog.Logger) *Server {
	app := fiber.New()

	// Request logging middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", c.Method(),
				"path", c.Path(),
				"status", c.Response().StatusCode(),
				"latency_ms", time.Since(start).Milliseconds(),
			)
		}

		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if pool == nil {
			dbStatus = "disabled"
		} else if err := pool.Ping(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "ok"
		if rdb == nil {
			redisStatus = "disabled"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		}

		status := "ok"
		if dbStatus == "error" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	return &Server{app: app, config: cfg, logger: logger}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
