// Package payments tracks the payment of each confirmed inquiry and its
// invoices.
package payments

import (
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/payments/handler"
	"ims_backend/internal/payments/repository"
	"ims_backend/internal/payments/service"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, tx db.TxRunner, store service.Storage, cfg service.Config, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), tx, store, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "payments"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/payments"))
}

var _ apphttp.Module = (*Module)(nil)
