package handler

import (
	"net/http"

	"ims_backend/internal/campaigns/domain"
	"ims_backend/internal/campaigns/repository"
	"ims_backend/internal/campaigns/service"
	"ims_backend/internal/campaigns/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidCampaignID = "invalid campaign id"
)

// Handler handles HTTP requests for campaigns.
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
	rg.GET("/:id/report", h.Report)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/archive", h.Archive)
}

// RegisterCronRoutes mounts the scheduler entry points.
func (h *Handler) RegisterCronRoutes(rg *gin.RouterGroup) {
	rg.GET("/campaigns", h.CronCampaigns)
	rg.POST("/campaigns/dispatch", h.Dispatch)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	recipients := make([]domain.Recipient, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, domain.Recipient{Email: r.Email, Name: r.Name, CC: r.CC, Vars: r.Vars})
	}

	created, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		Name:        req.Name,
		Kind:        req.Kind,
		TemplateKey: req.TemplateKey,
		Subject:     req.Subject,
		HTML:        req.HTML,
		SendOn:      req.SendOn,
		Recipients:  recipients,
		List:        req.List,
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListCampaignsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Type:     req.Type,
		Kind:     req.Kind,
		Status:   req.Status,
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
	campaign, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(campaign))
}

func (h *Handler) Report(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	report, err := h.svc.Report(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	campaign, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(campaign))
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	campaign, err := h.svc.Archive(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(campaign))
}

func (h *Handler) CronCampaigns(c *gin.Context) {
	due, err := h.svc.GetCronCampaigns(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.CampaignResponse, 0, len(due))
	for _, campaign := range due {
		out = append(out, toResponse(campaign))
	}
	httpkit.OK(c, out)
}

func (h *Handler) Dispatch(c *gin.Context) {
	result, err := h.svc.Dispatch(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCampaignID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toResponse(c repository.Campaign) transport.CampaignResponse {
	sendTo := make([]transport.RecipientResponse, 0, len(c.SendTo))
	for _, r := range c.SendTo {
		sendTo = append(sendTo, transport.RecipientResponse{Email: r.Email, Name: r.Name, CC: r.CC})
	}
	return transport.CampaignResponse{
		ID:               c.ID,
		Name:             c.Name,
		Type:             c.Type,
		Kind:             c.Kind,
		Status:           c.Status,
		TemplateKey:      c.TemplateKey,
		Subject:          c.Subject,
		SendOn:           c.SendOn,
		SendTo:           sendTo,
		SourceEntityType: c.SourceEntityType,
		SourceEntityID:   c.SourceEntityID,
		Attempts:         c.Attempts,
		LastError:        c.LastError,
		SentAt:           c.SentAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
