package handler

import (
	"context"
	"net/http"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/inquiries/repository"
	"ims_backend/internal/inquiries/service"
	"ims_backend/internal/inquiries/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/internal/shared/selection"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidInquiryID  = "invalid inquiry id"
	msgInvalidProposalID = "invalid proposal id"
	msgUnknownUser       = "salesperson must be an existing user"
)

// Handler handles HTTP requests for inquiries and their proposals.
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

	rg.POST("/:id/submit", h.Submit)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/revert", h.Revert)
	rg.POST("/:id/lost", h.MarkLost)
	rg.POST("/:id/follow-ups/schedule", h.ScheduleFollowups)
	rg.POST("/:id/follow-ups/cancel", h.CancelFollowups)

	rg.GET("/:id/proposals", h.ListProposals)
	rg.POST("/:id/proposals", h.CreateProposal)
	rg.PUT("/:id/proposals/:proposalId", h.UpdateProposal)
	rg.DELETE("/:id/proposals/:proposalId", h.DeleteProposal)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInquiryRequest
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

	company := req.Company
	if label, ok := req.Client.NewLabelValue(); ok && company == "" {
		company = label
	}

	inquiry, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		ClientID:        req.Client.IDPtr(),
		SalespersonID:   req.Salesperson.IDPtr(),
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		Company:         company,
		AccountantEmail: req.AccountantEmail,
		EventName:       req.EventName,
		Venue:           req.Venue,
		Pax:             req.Pax,
		StartDatetime:   req.StartDatetime,
		EndDatetime:     req.EndDatetime,
		ScopeOfWork:     toScope(req.ScopeOfWork),
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toInquiryResponse(inquiry))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListInquiriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := repository.ListParams{
		Status:    req.Status,
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.Salesperson != "" {
		id := uuid.MustParse(req.Salesperson)
		params.SalespersonID = &id
	}

	page, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, paging.Map(page, toInquiryResponse))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	proposals := make([]transport.ProposalResponse, 0, len(detail.Proposals))
	for _, p := range detail.Proposals {
		proposals = append(proposals, toProposalResponse(p))
	}
	httpkit.OK(c, transport.InquiryDetailResponse{
		InquiryResponse: toInquiryResponse(detail.Inquiry),
		Proposals:       proposals,
	})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	var req transport.UpdateInquiryRequest
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

	update := repository.InquiryUpdate{
		SalespersonID:   req.Salesperson.IDPtr(),
		ContactName:     req.ContactName,
		ContactPhone:    req.ContactPhone,
		Company:         req.Company,
		AccountantEmail: req.AccountantEmail,
		EventName:       req.EventName,
		Venue:           req.Venue,
		Pax:             req.Pax,
		StartDatetime:   req.StartDatetime,
		EndDatetime:     req.EndDatetime,
	}
	if req.ScopeOfWork != nil {
		update.ScopeOfWork = toScope(req.ScopeOfWork)
	}

	inquiry, err := h.svc.Edit(c.Request.Context(), id, update, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toInquiryResponse(inquiry))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id, identity.UserID())) {
		return
	}
	httpkit.OK(c, gin.H{"message": "inquiry deleted"})
}

func (h *Handler) Submit(c *gin.Context) {
	h.withProposals(c, h.svc.Submit)
}

func (h *Handler) Revert(c *gin.Context) {
	h.withProposals(c, h.svc.RevertToSubmitted)
}

type proposalAction func(ctx context.Context, id uuid.UUID, proposalIDs []uuid.UUID, actorID uuid.UUID) (repository.Inquiry, error)

func (h *Handler) withProposals(c *gin.Context, action proposalAction) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	var req transport.ProposalSelectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	inquiry, err := action(c.Request.Context(), id, req.ProposalIDs, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toInquiryResponse(inquiry))
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	var req transport.ConfirmInquiryRequest
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

	inquiry, err := h.svc.Confirm(c.Request.Context(), id, req.ProposalIDs, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toInquiryResponse(inquiry))
}

func (h *Handler) MarkLost(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	var req transport.MarkLostRequest
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

	inquiry, err := h.svc.MarkLost(c.Request.Context(), id, req.Reason, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toInquiryResponse(inquiry))
}

func (h *Handler) ScheduleFollowups(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	followUps, err := h.svc.ScheduleFollowups(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, followUps)
}

func (h *Handler) CancelFollowups(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if httpkit.HandleError(c, h.svc.CancelFollowups(c.Request.Context(), id, identity.UserID())) {
		return
	}
	httpkit.OK(c, gin.H{"message": "follow-ups cancelled"})
}

func (h *Handler) ListProposals(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	proposals, err := h.svc.ListProposals(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, toProposalResponse(p))
	}
	httpkit.OK(c, out)
}

func (h *Handler) CreateProposal(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}

	var req transport.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	proposal, err := h.svc.CreateProposal(c.Request.Context(), id, toProposalInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toProposalResponse(proposal))
}

func (h *Handler) UpdateProposal(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}
	proposalID, ok := parseID(c, "proposalId", msgInvalidProposalID)
	if !ok {
		return
	}

	var req transport.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	proposal, err := h.svc.UpdateProposal(c.Request.Context(), id, proposalID, toProposalInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toProposalResponse(proposal))
}

func (h *Handler) DeleteProposal(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidInquiryID)
	if !ok {
		return
	}
	proposalID, ok := parseID(c, "proposalId", msgInvalidProposalID)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteProposal(c.Request.Context(), id, proposalID)) {
		return
	}
	httpkit.OK(c, gin.H{"message": "proposal deleted"})
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toScope(items []transport.ScopeItem) []domain.ScopeItem {
	out := make([]domain.ScopeItem, 0, len(items))
	for _, item := range items {
		extras := item.Extras
		if extras == nil {
			extras = []string{}
		}
		out = append(out, domain.ScopeItem{Solution: item.Solution, Extras: extras})
	}
	return out
}

func toProposalInput(req transport.ProposalRequest) service.ProposalInput {
	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			VATRate:     item.VATRate,
		})
	}
	return service.ProposalInput{Title: req.Title, Link: req.Link, Items: items}
}

func toInquiryResponse(i repository.Inquiry) transport.InquiryResponse {
	activity := i.Activity
	if activity == nil {
		activity = []domain.Activity{}
	}
	scope := i.ScopeOfWork
	if scope == nil {
		scope = []domain.ScopeItem{}
	}
	return transport.InquiryResponse{
		ID:              i.ID,
		ClientID:        i.ClientID,
		LeadID:          i.LeadID,
		SalespersonID:   i.SalespersonID,
		ContactName:     i.ContactName,
		ContactEmail:    i.ContactEmail,
		ContactPhone:    i.ContactPhone,
		Company:         i.Company,
		AccountantEmail: i.AccountantEmail,
		EventName:       i.EventName,
		Venue:           i.Venue,
		Pax:             i.Pax,
		StartDatetime:   i.StartDatetime,
		EndDatetime:     i.EndDatetime,
		ScopeOfWork:     scope,
		Status:          string(i.Status),
		LostReason:      i.LostReason,
		FollowUps:       i.FollowUps,
		Activity:        activity,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func toProposalResponse(p repository.Proposal) transport.ProposalResponse {
	return transport.ProposalResponse{
		ID:             p.ID,
		InquiryID:      p.InquiryID,
		Title:          p.Title,
		Link:           p.Link,
		Items:          p.Details,
		SubtotalAmount: p.SubtotalAmount,
		VATAmount:      p.VATAmount,
		TotalAmount:    p.TotalAmount,
		Confirmed:      p.Confirmed,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
