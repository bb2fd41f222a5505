package handler

import (
	"net/http"

	"ims_backend/internal/payments/repository"
	"ims_backend/internal/payments/service"
	"ims_backend/internal/payments/transport"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidPaymentID = "invalid payment id"
	msgInvalidInvoiceID = "invalid invoice id"
	msgFileRequired     = "file is required"
)

// Handler handles HTTP requests for payments and invoices.
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
	rg.GET("/:id/invoices", h.ListInvoices)
	rg.POST("/:id/invoices", h.UploadInvoice)
	rg.POST("/:id/send-invoices", h.SendInvoices)
	rg.POST("/:id/clear", h.Clear)
	rg.GET("/invoices/:invoiceId/download", h.DownloadInvoice)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := repository.ListParams{Status: req.Status, Page: req.Page, PageSize: req.PageSize}
	if req.InquiryID != "" {
		id := uuid.MustParse(req.InquiryID)
		params.InquiryID = &id
	}

	page, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, paging.Map(page, func(p repository.Payment) transport.PaymentResponse {
		return toResponse(p, nil)
	}))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidPaymentID)
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(detail.Payment, detail.Invoices))
}

func (h *Handler) ListInvoices(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidPaymentID)
	if !ok {
		return
	}
	invoices, err := h.svc.ListInvoices(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toInvoiceResponses(invoices))
}

func (h *Handler) UploadInvoice(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidPaymentID)
	if !ok {
		return
	}

	var req transport.UploadInvoiceRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgFileRequired, nil)
		return
	}
	file, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgFileRequired, nil)
		return
	}
	defer file.Close()

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	inv, err := h.svc.UploadInvoice(c.Request.Context(), id, service.UploadInput{
		Number:      req.Number,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Reader:      file,
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toInvoiceResponse(inv))
}

func (h *Handler) SendInvoices(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidPaymentID)
	if !ok {
		return
	}
	p, err := h.svc.SendInvoices(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(p, nil))
}

func (h *Handler) Clear(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidPaymentID)
	if !ok {
		return
	}
	p, err := h.svc.ClearPayment(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(p, nil))
}

func (h *Handler) DownloadInvoice(c *gin.Context) {
	id, ok := parseID(c, "invoiceId", msgInvalidInvoiceID)
	if !ok {
		return
	}
	presigned, err := h.svc.InvoiceDownloadURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, presigned)
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toResponse(p repository.Payment, invoices []repository.Invoice) transport.PaymentResponse {
	ids := p.ProposalIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	resp := transport.PaymentResponse{
		ID:          p.ID,
		InquiryID:   p.InquiryID,
		ClientID:    p.ClientID,
		ProposalIDs: ids,
		Amount:      p.Amount,
		Status:      p.Status,
		ClearedAt:   p.ClearedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if invoices != nil {
		resp.Invoices = toInvoiceResponses(invoices)
	}
	return resp
}

func toInvoiceResponses(invoices []repository.Invoice) []transport.InvoiceResponse {
	out := make([]transport.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out
}

func toInvoiceResponse(inv repository.Invoice) transport.InvoiceResponse {
	return transport.InvoiceResponse{
		ID:        inv.ID,
		PaymentID: inv.PaymentID,
		Number:    inv.Number,
		FileURL:   inv.FileURL,
		CreatedAt: inv.CreatedAt,
	}
}
