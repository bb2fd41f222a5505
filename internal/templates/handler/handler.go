package handler

import (
	"net/http"

	"ims_backend/internal/templates/service"
	"ims_backend/internal/templates/transport"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for email templates.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:key", h.Get)
	rg.PUT("/:key", h.Update)
	rg.DELETE("/:key", h.Delete)
	rg.POST("/:key/preview", h.Preview)
}

func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, items)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req.Key, req.Name, req.Subject, req.HTML)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, created)
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("key"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, t)
}

func (h *Handler) Update(c *gin.Context) {
	var req transport.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), c.Param("key"), req.Name, req.Subject, req.HTML)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), c.Param("key"))) {
		return
	}
	httpkit.OK(c, gin.H{"message": "template deleted"})
}

func (h *Handler) Preview(c *gin.Context) {
	var req transport.PreviewTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	out, err := h.svc.Render(c.Request.Context(), c.Param("key"), req.Vars)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, out)
}
