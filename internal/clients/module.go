// Package clients provides the client directory: deduplication by email,
// marketing lists, lifetime aggregates and birthday campaigns.
package clients

import (
	"ims_backend/internal/clients/handler"
	"ims_backend/internal/clients/repository"
	"ims_backend/internal/clients/service"
	"ims_backend/internal/events"
	apphttp "ims_backend/internal/http"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the clients module and subscribes it to bounce events.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	svc.RegisterHandlers(bus)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "clients"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/clients"))
}

var _ apphttp.Module = (*Module)(nil)
