package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	// Health check routes
	app.Get("/health", deps.HealthHandler.Health)
	app.Get("/healthz", deps.HealthHandler.Health)
	app.Get("/livez", deps.HealthHandler.Liveness)
	app.Get("/readyz", deps.HealthHandler.Readiness)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	if deps.Config.RateLimit.Enabled {
		v1.Use(deps.RateLimitMiddleware.Handler())
	}

	v1.Post("/threads/messages", deps.ThreadHandler.Submit)
	v1.Get("/threads/:id", deps.ThreadHandler.GetThread)
	v1.Post("/threads/:id/stop", deps.ThreadHandler.Stop)
	v1.Get("/threads/:id/stream", deps.StreamHandler.Stream)
}
