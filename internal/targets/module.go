// Package targets manages monthly sales targets.
package targets

import (
	apphttp "ims_backend/internal/http"
	"ims_backend/internal/targets/handler"
	"ims_backend/internal/targets/repository"
	"ims_backend/internal/targets/service"
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
	return "targets"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/targets"))
}

var _ apphttp.Module = (*Module)(nil)
