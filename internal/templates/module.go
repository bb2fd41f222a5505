// Package templates provides the email template registry module.
package templates

import (
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/templates/handler"
	"ims_backend/internal/templates/repository"
	"ims_backend/internal/templates/service"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the templates bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "templates"
}

// Service exposes rendering to the campaign dispatcher.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/templates"))
}

var _ apphttp.Module = (*Module)(nil)
