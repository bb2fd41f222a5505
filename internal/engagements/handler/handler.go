package handler

import (
	"context"
	"net/http"

	"ims_backend/internal/engagements/repository"
	"ims_backend/internal/engagements/service"
	"ims_backend/internal/engagements/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidEventID   = "invalid event id"
)

// Handler handles HTTP requests for confirmed events.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/finish", h.Finish)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/archive-software", h.ArchiveSoftware)
	rg.PUT("/:id/portal-code", h.SetPortalCode)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Status:         req.Status,
		SoftwareStatus: req.SoftwareStatus,
		From:           req.From,
		To:             req.To,
		Search:         req.Search,
		Page:           req.Page,
		PageSize:       req.PageSize,
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
	event, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(event))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	update := repository.EventUpdate{Name: req.Name, Venue: req.Venue, Pax: req.Pax}
	if req.Logistics != nil {
		update.Logistics = &repository.Logistics{
			LoadIn:    req.Logistics.LoadIn,
			LoadOut:   req.Logistics.LoadOut,
			Crew:      req.Logistics.Crew,
			Equipment: req.Logistics.Equipment,
			Software:  req.Logistics.Software,
			Notes:     req.Logistics.Notes,
		}
	}

	event, err := h.svc.Update(c.Request.Context(), id, update)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(event))
}

func (h *Handler) Finish(c *gin.Context) {
	h.action(c, h.svc.Finish)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.action(c, h.svc.Cancel)
}

func (h *Handler) ArchiveSoftware(c *gin.Context) {
	h.action(c, h.svc.ArchiveSoftware)
}

func (h *Handler) SetPortalCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.PortalCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	event, err := h.svc.SetPortalCode(c.Request.Context(), id, req.Code)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(event))
}

func (h *Handler) action(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (repository.Event, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	event, err := fn(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(event))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidEventID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toResponse(e repository.Event) transport.EventResponse {
	return transport.EventResponse{
		ID:            e.ID,
		InquiryID:     e.InquiryID,
		ClientID:      e.ClientID,
		Name:          e.Name,
		Venue:         e.Venue,
		Pax:           e.Pax,
		StartDatetime: e.StartDatetime,
		EndDatetime:   e.EndDatetime,
		Logistics: transport.Logistics{
			LoadIn:    e.Logistics.LoadIn,
			LoadOut:   e.Logistics.LoadOut,
			Crew:      e.Logistics.Crew,
			Equipment: e.Logistics.Equipment,
			Software:  e.Logistics.Software,
			Notes:     e.Logistics.Notes,
		},
		Status:         e.Status,
		SoftwareStatus: e.SoftwareStatus,
		PortalCode:     e.PortalCode,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
