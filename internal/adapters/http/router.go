package http

import (
	"time"

	"github.com/folimar/solkat/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
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

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
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
		c.Set("X-Frame-Options", "SAMEORIGIN")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/lookup", timeout.NewWithContext(LookupHandler(deps), 15*time.Second))
	v1.Get("/lookup/geojson", timeout.NewWithContext(LookupGeoJSONHandler(deps), 15*time.Second))
	v1.Get("/roofs/bbox", timeout.NewWithContext(RoofsBBoxHandler(deps), 15*time.Second))
	v1.Get("/buildings/nearby", timeout.NewWithContext(NearbyBuildingsHandler(deps), 15*time.Second))
	v1.Get("/buildings/search", timeout.NewWithContext(SearchBuildingsHandler(deps), 15*time.Second))
	v1.Get("/buildings/:egid", timeout.NewWithContext(GetBuildingHandler(deps), 15*time.Second))
	v1.Get("/potential/top", timeout.NewWithContext(TopPotentialHandler(deps), 15*time.Second))
	v1.Get("/potential/:egid", timeout.NewWithContext(GetPotentialHandler(deps), 15*time.Second))
	v1.Get("/datasets", timeout.NewWithContext(ListDatasetsHandler(deps), 15*time.Second))
	v1.Get("/datasets/status", timeout.NewWithContext(DatasetStatusHandler(deps), 15*time.Second))

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
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))

	// Map viewer
	if deps.StaticDir != "" {
		app.Static("/", deps.StaticDir)
	}
}
