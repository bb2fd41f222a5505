package handler

import (
	"net/http"

	"ims_backend/internal/clients/repository"
	"ims_backend/internal/clients/service"
	"ims_backend/internal/clients/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidClientID  = "invalid client id"
)

// Handler handles HTTP requests for clients.
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
	rg.GET("/lists", h.Lists)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/unsubscribe", h.Unsubscribe)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, existed, err := h.svc.AddClient(c.Request.Context(), service.AddClientInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		List:      req.List,
		BirthDate: req.BirthDate,
	}, service.OriginManual)
	if httpkit.HandleError(c, err) {
		return
	}
	if existed {
		httpkit.Exists(c, "client already exists", toResponse(client))
		return
	}
	httpkit.Created(c, toResponse(client))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), repository.ListParams{
		List:       req.List,
		Subscribed: req.Subscribed,
		Search:     req.Search,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, paging.Map(page, toResponse))
}

func (h *Handler) Lists(c *gin.Context) {
	lists, err := h.svc.Lists(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lists)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	client, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(client))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.Update(c.Request.Context(), id, repository.ClientUpdate{
		Name:       req.Name,
		Phone:      req.Phone,
		Company:    req.Company,
		List:       req.List,
		Subscribed: req.Subscribed,
		BirthDate:  req.BirthDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(client))
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Unsubscribe(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"message": "client unsubscribed"})
}

func toResponse(c repository.Client) transport.ClientResponse {
	return transport.ClientResponse{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Company:        c.Company,
		List:           c.List,
		Subscribed:     c.Subscribed,
		BirthDate:      c.BirthDate,
		LastWishedAt:   c.LastWishedAt,
		TotalInquiries: c.TotalInquiries,
		TotalEvents:    c.TotalEvents,
		TotalSpent:     c.TotalSpent,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
