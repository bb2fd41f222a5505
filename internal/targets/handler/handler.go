package handler

import (
	"net/http"

	"ims_backend/internal/targets/repository"
	"ims_backend/internal/targets/service"
	"ims_backend/internal/targets/transport"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidTargetID  = "invalid target id"
)

// Handler handles HTTP requests for sales targets.
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
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	target, err := h.svc.Create(c.Request.Context(), req.Month, req.Year, req.Amount)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toResponse(target))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListTargetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var year *int
	if req.Year != 0 {
		year = &req.Year
	}
	targets, err := h.svc.List(c.Request.Context(), year)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := make([]transport.TargetResponse, 0, len(targets))
	for _, t := range targets {
		resp = append(resp, toResponse(t))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTargetID, nil)
		return
	}

	var req transport.UpdateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	target, err := h.svc.Update(c.Request.Context(), id, repository.TargetUpdate{
		Month:  req.Month,
		Year:   req.Year,
		Amount: req.Amount,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(target))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTargetID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"message": "target deleted"})
}

func toResponse(t repository.Target) transport.TargetResponse {
	return transport.TargetResponse{
		ID:        t.ID,
		Month:     t.Month,
		Year:      t.Year,
		Amount:    t.Amount,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
