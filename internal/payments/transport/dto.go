package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ListPaymentsRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=PENDING UNPAID CLEARED"`
	InquiryID string `form:"inquiryId" validate:"omitempty,uuid"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type UploadInvoiceRequest struct {
	Number string `form:"number" validate:"required,min=1,max=64,printascii"`
}

type PaymentResponse struct {
	ID          uuid.UUID         `json:"id"`
	InquiryID   uuid.UUID         `json:"inquiryId"`
	ClientID    *uuid.UUID        `json:"clientId,omitempty"`
	ProposalIDs []uuid.UUID       `json:"proposalIds"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      string            `json:"status"`
	ClearedAt   *time.Time        `json:"clearedAt,omitempty"`
	Invoices    []InvoiceResponse `json:"invoices,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type InvoiceResponse struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"paymentId"`
	Number    string    `json:"number"`
	FileURL   string    `json:"fileUrl"`
	CreatedAt time.Time `json:"createdAt"`
}
