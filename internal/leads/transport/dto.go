package transport

import (
	"time"

	"ims_backend/internal/shared/selection"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	Name       string              `json:"name" validate:"required,min=1,max=200"`
	Email      string              `json:"email" validate:"required,email"`
	Phone      string              `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company    string              `json:"company,omitempty" validate:"omitempty,max=200"`
	Source     string              `json:"source,omitempty" validate:"omitempty,max=100"`
	Notes      string              `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedTo selection.Selection `json:"assignedTo"`
}

type UpdateLeadRequest struct {
	Name       *string             `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone      *string             `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company    *string             `json:"company,omitempty" validate:"omitempty,max=200"`
	Source     *string             `json:"source,omitempty" validate:"omitempty,max=100"`
	Notes      *string             `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedTo selection.Selection `json:"assignedTo"`
}

type ListLeadsRequest struct {
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Search     string `form:"search" validate:"max=100"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ConvertLeadRequest struct {
	EventName     string              `json:"eventName" validate:"required,max=200"`
	Venue         string              `json:"venue,omitempty" validate:"omitempty,max=200"`
	Pax           int                 `json:"pax" validate:"min=0,max=100000"`
	StartDatetime time.Time           `json:"startDatetime" validate:"required"`
	EndDatetime   time.Time           `json:"endDatetime" validate:"required"`
	Salesperson   selection.Selection `json:"salesperson"`
}

type LeadResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Company    string     `json:"company"`
	Source     string     `json:"source"`
	Notes      string     `json:"notes"`
	Status     string     `json:"status"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	InquiryID  *uuid.UUID `json:"inquiryId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type ConvertLeadResponse struct {
	InquiryID uuid.UUID `json:"inquiryId"`
}
