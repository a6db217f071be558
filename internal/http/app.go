// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"pos_invoicing_backend/internal/events"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheck names one dependency probed by /api/health.
type HealthCheck struct {
	Name    string
	Checker HealthChecker
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health lists the dependencies probed by readiness checks (database, queue).
	Health []HealthCheck
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
