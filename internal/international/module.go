// Package international handles inquiries for events abroad. They follow a
// shorter lifecycle than domestic inquiries and never spawn campaigns.
package international

import (
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/international/handler"
	"ims_backend/internal/international/repository"
	"ims_backend/internal/international/service"
	"ims_backend/platform/logger"
	"ims_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "international"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/international-inquiries"))
}

var _ apphttp.Module = (*Module)(nil)
