package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/hikepal/internal/adapters/gemini"
	"github.com/samirrijal/hikepal/internal/adapters/http"
	"github.com/samirrijal/hikepal/internal/adapters/mapsurface"
	natsadapter "github.com/samirrijal/hikepal/internal/adapters/nats"
	"github.com/samirrijal/hikepal/internal/adapters/postgres"
	"github.com/samirrijal/hikepal/internal/adapters/valkey"
	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/core/usecases"
	"github.com/samirrijal/hikepal/internal/pkg/config"
	"github.com/samirrijal/hikepal/internal/pkg/logging"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
	"github.com/samirrijal/hikepal/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("hikepal-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, os.Getenv("LOG_FORMAT"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{DocsPath: os.Getenv("HIKEPAL_OPENAPI_PATH")}
	sessionDeps := usecases.SessionDeps{}

	// Trail catalog; the built-in catalog covers an absent database
	var trails ports.TrailRepository
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			slog.Warn("database unavailable, using built-in trail catalog", "error", err)
		} else {
			defer db.Close()
			deps.DB = db
			trails = postgres.NewTrailRepo(db.Pool)
			go reportPoolStats(ctx, db)
		}
	}

	// Advice cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
		sessionDeps.Cache = cache
	}

	// Session events out, telemetry feed in
	var feed ports.TelemetrySubscriber
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, session events stay local", "error", err)
	} else {
		defer pub.Close()
		deps.NATS = pub.Conn()
		sessionDeps.Publisher = pub

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("telemetry feed unavailable", "error", err)
		} else {
			defer sub.Close()
			feed = sub
		}
	}

	// A nil knowledge service puts every advisory channel in demo mode.
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		slog.Warn("gemini api key missing, advisory channel runs in demo mode")
	} else {
		knowledge, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.Gemini.Timeout(),
		})
		if err != nil {
			slog.Warn("gemini client unavailable, advisory channel runs in demo mode", "error", err)
		} else {
			sessionDeps.Knowledge = knowledge
		}
	}

	var scenes mapsurface.ScenePublisher
	if sessionDeps.Publisher != nil {
		scenes = sessionDeps.Publisher
	}
	sessionDeps.Surface = mapsurface.New(scenes)

	sessions := usecases.NewSessionService(trails, feed, sessionDeps, sessionConfig(cfg.Companion), cfg.Companion.DefaultTrail)
	deps.Sessions = sessions

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "HikePal API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Every session releases its map surface and cancels its timers.
	sessions.CloseAll()

	slog.Info("server stopped")
}

func sessionConfig(c config.CompanionConfig) usecases.SessionConfig {
	sc := usecases.DefaultSessionConfig()
	sc.Surface = domain.SurfaceSize{Width: c.SurfaceWidth, Height: c.SurfaceHeight}
	sc.PaddingTopLeft = padding(c.PaddingTopLeft, sc.PaddingTopLeft)
	sc.PaddingBottomRight = padding(c.PaddingBottomRight, sc.PaddingBottomRight)
	sc.AdvisoryTimeout = c.AdvisoryTimeout()
	sc.AdviceCacheTTL = c.AdviceCacheTTL()
	sc.TeamReplyDelay = c.TeamReplyDelay()
	return sc
}

func padding(v []int, def domain.Padding) domain.Padding {
	if len(v) != 2 {
		return def
	}
	return domain.Padding{X: v[0], Y: v[1]}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
