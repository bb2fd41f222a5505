// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"
	"net/http"

	"ims_backend/internal/events"
	"ims_backend/platform/config"
	"ims_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.CronConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// MetricsProvider exposes the Prometheus scrape handler and request instrumentation.
type MetricsProvider interface {
	Handler() http.Handler
	Middleware() gin.HandlerFunc
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP, JWT and cron settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// Metrics is optional; nil disables /metrics.
	Metrics MetricsProvider
	// ErrorRecorder persists 5xx errors. Optional.
	ErrorRecorder gin.HandlerFunc
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
