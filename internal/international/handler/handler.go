package handler

import (
	"net/http"

	"ims_backend/internal/international/repository"
	"ims_backend/internal/international/service"
	"ims_backend/internal/international/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/internal/shared/selection"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid international inquiry id"
	msgUnknownUser      = "salesperson must be an existing user"
)

// Handler handles HTTP requests for international inquiries.
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
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/status", h.SetStatus)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInternationalRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Salesperson.Kind() == selection.NewLabel {
		httpkit.Error(c, http.StatusBadRequest, msgUnknownUser, nil)
		return
	}

	inquiry, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Company:       req.Company,
		Country:       req.Country,
		EventName:     req.EventName,
		StartDatetime: req.StartDatetime,
		EndDatetime:   req.EndDatetime,
		Pax:           req.Pax,
		Notes:         req.Notes,
		SalespersonID: req.Salesperson.IDPtr(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toResponse(inquiry))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListInternationalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Status:   req.Status,
		Country:  req.Country,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, paging.Map(page, toResponse))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	inquiry, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(inquiry))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateInternationalRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Salesperson.Kind() == selection.NewLabel {
		httpkit.Error(c, http.StatusBadRequest, msgUnknownUser, nil)
		return
	}

	inquiry, err := h.svc.Update(c.Request.Context(), id, repository.InquiryUpdate{
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		Company:       req.Company,
		Country:       req.Country,
		EventName:     req.EventName,
		StartDatetime: req.StartDatetime,
		EndDatetime:   req.EndDatetime,
		Pax:           req.Pax,
		Notes:         req.Notes,
		SalespersonID: req.Salesperson.IDPtr(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(inquiry))
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SetStatusRequest
	if !h.bind(c, &req) {
		return
	}

	inquiry, err := h.svc.SetStatus(c.Request.Context(), id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(inquiry))
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toResponse(i repository.Inquiry) transport.InternationalResponse {
	return transport.InternationalResponse{
		ID:            i.ID,
		ContactName:   i.ContactName,
		ContactEmail:  i.ContactEmail,
		ContactPhone:  i.ContactPhone,
		Company:       i.Company,
		Country:       i.Country,
		EventName:     i.EventName,
		StartDatetime: i.StartDatetime,
		EndDatetime:   i.EndDatetime,
		Pax:           i.Pax,
		Notes:         i.Notes,
		SalespersonID: i.SalespersonID,
		Status:        i.Status,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}
