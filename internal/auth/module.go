// Package auth provides the authentication bounded context module.
// This file defines the module that encapsulates all auth setup and route registration.
package auth

import (
	"ims_backend/internal/auth/handler"
	"ims_backend/internal/auth/repository"
	"ims_backend/internal/auth/service"
	apphttp "ims_backend/internal/http"
	"ims_backend/platform/config"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the subset of settings auth needs.
type Config interface {
	config.AuthServiceConfig
	config.CookieConfig
}

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg Config, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, cfg, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service for use by adapters (e.g., salesperson lookups).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.GET("/users/me", m.handler.GetMe)
	ctx.Protected.PATCH("/users/me", m.handler.UpdateMe)
	ctx.Protected.POST("/users/me/password", m.handler.ChangePassword)
	ctx.Protected.GET("/users", m.handler.ListUsers)

	ctx.Admin.POST("/users", m.handler.CreateUser)
	ctx.Admin.PUT("/users/:id/roles", m.handler.SetUserRoles)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
