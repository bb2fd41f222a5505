// Package webhook receives email vendor callbacks and records them as
// campaign report events.
package webhook

import (
	"ims_backend/internal/events"
	apphttp "ims_backend/internal/http"
	"ims_backend/platform/config"
	"ims_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(recorder ReportRecorder, eventBus events.Bus, metrics Metrics, cfg config.WebhookConfig, log *logger.Logger) *Module {
	service := NewService(recorder, eventBus, metrics, log)
	return &Module{handler: NewHandler(service), cfg: cfg}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public vendor endpoint (signature auth, no JWT)
	ctx.V1.HEAD("/webhooks/mandrill", m.handler.HandleProbe)
	group := ctx.V1.Group("/webhooks")
	group.Use(MandrillSignatureMiddleware(m.cfg.GetMandrillWebhookKey(), m.cfg.GetMandrillWebhookURL()))
	group.POST("/mandrill", m.handler.HandleMandrill)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
