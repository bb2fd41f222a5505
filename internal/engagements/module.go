// Package engagements manages confirmed events: logistics, lifecycle and the
// link to the reporting portal.
package engagements

import (
	"ims_backend/internal/engagements/handler"
	"ims_backend/internal/engagements/repository"
	"ims_backend/internal/engagements/service"
	apphttp "ims_backend/internal/http"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the engagements bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, tx db.TxRunner, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), tx, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "engagements"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/events"))
}

var _ apphttp.Module = (*Module)(nil)
