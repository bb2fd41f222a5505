package handler

import (
	"net/http"

	"ims_backend/internal/leads/repository"
	"ims_backend/internal/leads/service"
	"ims_backend/internal/leads/transport"
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
	msgInvalidLeadID    = "invalid lead id"
	msgUnknownUser      = "assignee must be an existing user"
)

// Handler handles HTTP requests for leads.
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
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/convert", h.Convert)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.AssignedTo.Kind() == selection.NewLabel {
		httpkit.Error(c, http.StatusBadRequest, msgUnknownUser, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Company:    req.Company,
		Source:     req.Source,
		Notes:      req.Notes,
		AssignedTo: req.AssignedTo.IDPtr(),
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := repository.ListParams{Search: req.Search, Page: req.Page, PageSize: req.PageSize}
	if req.AssignedTo != "" {
		id := uuid.MustParse(req.AssignedTo)
		params.AssignedTo = &id
	}

	page, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, paging.Map(page, toResponse))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.AssignedTo.Kind() == selection.NewLabel {
		httpkit.Error(c, http.StatusBadRequest, msgUnknownUser, nil)
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id, repository.LeadUpdate{
		Name:       req.Name,
		Phone:      req.Phone,
		Company:    req.Company,
		Source:     req.Source,
		Notes:      req.Notes,
		AssignedTo: req.AssignedTo.IDPtr(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"message": "lead deleted"})
}

func (h *Handler) Convert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.ConvertLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.Salesperson.Kind() == selection.NewLabel {
		httpkit.Error(c, http.StatusBadRequest, msgUnknownUser, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	inquiryID, err := h.svc.Convert(c.Request.Context(), id, service.ConvertInput{
		EventName:     req.EventName,
		Venue:         req.Venue,
		Pax:           req.Pax,
		Start:         req.StartDatetime,
		End:           req.EndDatetime,
		SalespersonID: req.Salesperson.IDPtr(),
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ConvertLeadResponse{InquiryID: inquiryID})
}

func toResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:         l.ID,
		Name:       l.Name,
		Email:      l.Email,
		Phone:      l.Phone,
		Company:    l.Company,
		Source:     l.Source,
		Notes:      l.Notes,
		Status:     l.Status,
		AssignedTo: l.AssignedTo,
		InquiryID:  l.InquiryID,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}
