package transport

import (
	"time"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/shared/selection"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScopeItem struct {
	Solution string   `json:"solution" validate:"required,max=200"`
	Extras   []string `json:"extras" validate:"omitempty,dive,max=200"`
}

type CreateInquiryRequest struct {
	Client          selection.Selection `json:"client"`
	Salesperson     selection.Selection `json:"salesperson"`
	ContactName     string              `json:"contactName" validate:"required,min=1,max=200"`
	ContactEmail    string              `json:"contactEmail" validate:"required,email"`
	ContactPhone    string              `json:"contactPhone,omitempty" validate:"omitempty,max=40"`
	Company         string              `json:"company,omitempty" validate:"omitempty,max=200"`
	AccountantEmail string              `json:"accountantEmail,omitempty" validate:"omitempty,email"`
	EventName       string              `json:"eventName" validate:"required,max=200"`
	Venue           string              `json:"venue,omitempty" validate:"omitempty,max=200"`
	Pax             int                 `json:"pax" validate:"min=0,max=100000"`
	StartDatetime   time.Time           `json:"startDatetime" validate:"required"`
	EndDatetime     time.Time           `json:"endDatetime" validate:"required"`
	ScopeOfWork     []ScopeItem         `json:"scopeOfWork" validate:"omitempty,dive"`
}

type UpdateInquiryRequest struct {
	Salesperson     selection.Selection `json:"salesperson"`
	ContactName     *string             `json:"contactName,omitempty" validate:"omitempty,min=1,max=200"`
	ContactPhone    *string             `json:"contactPhone,omitempty" validate:"omitempty,max=40"`
	Company         *string             `json:"company,omitempty" validate:"omitempty,max=200"`
	AccountantEmail *string             `json:"accountantEmail,omitempty" validate:"omitempty,email"`
	EventName       *string             `json:"eventName,omitempty" validate:"omitempty,min=1,max=200"`
	Venue           *string             `json:"venue,omitempty" validate:"omitempty,max=200"`
	Pax             *int                `json:"pax,omitempty" validate:"omitempty,min=0,max=100000"`
	StartDatetime   *time.Time          `json:"startDatetime,omitempty"`
	EndDatetime     *time.Time          `json:"endDatetime,omitempty"`
	ScopeOfWork     []ScopeItem         `json:"scopeOfWork,omitempty" validate:"omitempty,dive"`
}

type ListInquiriesRequest struct {
	Status      string `form:"status" validate:"omitempty,oneof=NEW SUBMITTED CONFIRMED LOST DELETED"`
	Salesperson string `form:"salesperson" validate:"omitempty,uuid"`
	Search      string `form:"search" validate:"max=100"`
	SortBy      string `form:"sortBy" validate:"omitempty,oneof=startDatetime eventName createdAt"`
	SortOrder   string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ProposalSelectionRequest struct {
	ProposalIDs []uuid.UUID `json:"proposalIds" validate:"omitempty,max=50"`
}

type ConfirmInquiryRequest struct {
	ProposalIDs []uuid.UUID `json:"proposalIds" validate:"required,min=1,max=50"`
}

type MarkLostRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type LineItem struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
}

type ProposalRequest struct {
	Title string     `json:"title" validate:"required,max=200"`
	Link  string     `json:"link" validate:"required,url,max=1000"`
	Items []LineItem `json:"items" validate:"required,min=1,max=200,dive"`
}

type InquiryResponse struct {
	ID              uuid.UUID          `json:"id"`
	ClientID        *uuid.UUID         `json:"clientId,omitempty"`
	LeadID          *uuid.UUID         `json:"leadId,omitempty"`
	SalespersonID   *uuid.UUID         `json:"salespersonId,omitempty"`
	ContactName     string             `json:"contactName"`
	ContactEmail    string             `json:"contactEmail"`
	ContactPhone    string             `json:"contactPhone"`
	Company         string             `json:"company"`
	AccountantEmail string             `json:"accountantEmail"`
	EventName       string             `json:"eventName"`
	Venue           string             `json:"venue"`
	Pax             int                `json:"pax"`
	StartDatetime   time.Time          `json:"startDatetime"`
	EndDatetime     time.Time          `json:"endDatetime"`
	ScopeOfWork     []domain.ScopeItem `json:"scopeOfWork"`
	Status          string             `json:"status"`
	LostReason      string             `json:"lostReason,omitempty"`
	FollowUps       domain.FollowUps   `json:"followUps"`
	Activity        []domain.Activity  `json:"activity"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type ProposalResponse struct {
	ID             uuid.UUID         `json:"id"`
	InquiryID      uuid.UUID         `json:"inquiryId"`
	Title          string            `json:"title"`
	Link           string            `json:"link"`
	Items          []domain.LineItem `json:"items"`
	SubtotalAmount decimal.Decimal   `json:"subtotalAmount"`
	VATAmount      decimal.Decimal   `json:"vatAmount"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	Confirmed      bool              `json:"confirmed"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type InquiryDetailResponse struct {
	InquiryResponse
	Proposals []ProposalResponse `json:"proposals"`
}
