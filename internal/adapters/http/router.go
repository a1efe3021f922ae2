package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/placesweep/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 60 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))
	app.Get("/v1/diag", DiagHandler(deps))

	// A sweep holds the request for as long as the decomposition and
	// hydration take; everything else gets the usual short budget.
	sweepTimeout := 10 * time.Minute
	if deps.Config != nil && deps.Config.Server.SweepTimeout > 0 {
		sweepTimeout = time.Duration(deps.Config.Server.SweepTimeout) * time.Second
	}

	v1 := app.Group("/v1")
	v1.Get("/estimate", timeout.NewWithContext(EstimateHandler(deps), 30*time.Second))
	v1.Get("/search", timeout.NewWithContext(SearchCityHandler(deps), sweepTimeout))
	v1.Get("/search/point", timeout.NewWithContext(SearchPointHandler(deps), sweepTimeout))
	v1.Get("/snapshots", timeout.NewWithContext(ListSnapshotsHandler(deps), 15*time.Second))
	v1.Get("/snapshots/:slug", timeout.NewWithContext(GetSnapshotHandler(deps), 15*time.Second))
	v1.Get("/places/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), 15*time.Second))

	// Legacy pre-v1 endpoints, answering in the original shapes until sunset
	sunset := time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/health", SunsetDate: sunset, Alternative: "/v1/health"},
		{Path: "/test", SunsetDate: sunset, Alternative: "/v1/diag"},
		{Path: "/count", SunsetDate: sunset, Alternative: "/v1/estimate"},
		{Path: "/search", SunsetDate: sunset, Alternative: "/v1/search"},
	}))
	app.Get("/health", LegacyHealthHandler())
	app.Get("/test", LegacyTestHandler(deps))
	app.Get("/count", timeout.NewWithContext(LegacyCountHandler(deps), 30*time.Second))
	app.Get("/search", timeout.NewWithContext(LegacySearchHandler(deps), sweepTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/search", websocket.New(WebSocketHandler(deps.NATS)))
}
