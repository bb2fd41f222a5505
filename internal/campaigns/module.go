// Package campaigns stores outbound email campaigns, dispatches the due ones
// and aggregates their delivery reports.
package campaigns

import (
	"ims_backend/internal/campaigns/handler"
	"ims_backend/internal/campaigns/service"
	apphttp "ims_backend/internal/http"
	"ims_backend/platform/validator"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wraps an already constructed service; the dispatcher is shared
// with the background scheduler.
func NewModule(svc *service.Service, val *validator.Validator) *Module {
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "campaigns"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/campaigns"))
	m.handler.RegisterCronRoutes(ctx.Cron)
}

var _ apphttp.Module = (*Module)(nil)
