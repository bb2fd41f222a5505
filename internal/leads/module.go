// Package leads provides the pre-inquiry lead pipeline and lead-to-inquiry
// conversion.
package leads

import (
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/leads/handler"
	"ims_backend/internal/leads/repository"
	"ims_backend/internal/leads/service"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, tx db.TxRunner, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), tx, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "leads"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
