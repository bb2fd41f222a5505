// Package inquiries provides the inquiry lifecycle: proposals, submission,
// confirmation, loss and the follow-up email schedule.
package inquiries

import (
	"ims_backend/internal/events"
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/inquiries/handler"
	"ims_backend/internal/inquiries/repository"
	"ims_backend/internal/inquiries/service"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inquiries bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the inquiries module. Cross-module ports are wired later
// through Service().SetPorts.
func NewModule(pool *pgxpool.Pool, tx db.TxRunner, bus events.Bus, cfg service.Config, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), tx, bus, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "inquiries"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/inquiries"))
}

var _ apphttp.Module = (*Module)(nil)
