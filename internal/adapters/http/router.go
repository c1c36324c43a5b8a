package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// Long enough for a waited advisory send to outlive the advisory timeout.
	sendTimeout = 45 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID, then propagate it into the slog context
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/trails", timeout.NewWithContext(ListTrailsHandler(deps), requestTimeout))
	v1.Get("/markers/:category", MarkerHandler())

	v1.Post("/sessions", timeout.NewWithContext(StartSessionHandler(deps), requestTimeout))
	v1.Get("/sessions", ListSessionsHandler(deps))
	v1.Get("/sessions/:id", GetSessionHandler(deps))
	v1.Delete("/sessions/:id", timeout.NewWithContext(EndSessionHandler(deps), requestTimeout))
	v1.Post("/sessions/:id/messages", timeout.NewWithContext(SendMessageHandler(deps), sendTimeout))
	v1.Get("/sessions/:id/messages", ListMessagesHandler(deps))
	v1.Get("/sessions/:id/channels/:channel", ChannelStateHandler(deps))
	v1.Get("/sessions/:id/participants", ParticipantsHandler(deps))
	v1.Put("/sessions/:id/participants/:pid/location", timeout.NewWithContext(UpdateLocationHandler(deps), requestTimeout))
	v1.Put("/sessions/:id/participants/:pid/status", timeout.NewWithContext(UpdateStatusHandler(deps), requestTimeout))
	v1.Get("/sessions/:id/viewport", ViewportHandler(deps))
	v1.Get("/sessions/:id/scene", SceneHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.DocsPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sessions/:id", websocket.New(SessionSocketHandler(deps.NATS, deps.Sessions)))
}
