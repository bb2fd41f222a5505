package transport

import (
	"time"

	"ims_backend/internal/shared/selection"

	"github.com/google/uuid"
)

type CreateInternationalRequest struct {
	ContactName   string              `json:"contactName" validate:"required,min=1,max=200"`
	ContactEmail  string              `json:"contactEmail" validate:"required,email"`
	ContactPhone  string              `json:"contactPhone,omitempty" validate:"omitempty,max=40"`
	Company       string              `json:"company,omitempty" validate:"omitempty,max=200"`
	Country       string              `json:"country" validate:"required,max=100"`
	EventName     string              `json:"eventName,omitempty" validate:"omitempty,max=200"`
	StartDatetime *time.Time          `json:"startDatetime,omitempty"`
	EndDatetime   *time.Time          `json:"endDatetime,omitempty"`
	Pax           int                 `json:"pax" validate:"min=0,max=100000"`
	Notes         string              `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Salesperson   selection.Selection `json:"salesperson"`
}

type UpdateInternationalRequest struct {
	ContactName   *string             `json:"contactName,omitempty" validate:"omitempty,min=1,max=200"`
	ContactPhone  *string             `json:"contactPhone,omitempty" validate:"omitempty,max=40"`
	Company       *string             `json:"company,omitempty" validate:"omitempty,max=200"`
	Country       *string             `json:"country,omitempty" validate:"omitempty,min=1,max=100"`
	EventName     *string             `json:"eventName,omitempty" validate:"omitempty,max=200"`
	StartDatetime *time.Time          `json:"startDatetime,omitempty"`
	EndDatetime   *time.Time          `json:"endDatetime,omitempty"`
	Pax           *int                `json:"pax,omitempty" validate:"omitempty,min=0,max=100000"`
	Notes         *string             `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Salesperson   selection.Selection `json:"salesperson"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=CONFIRM LOST ARCHIVED"`
}

type ListInternationalRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=PENDING CONFIRM LOST ARCHIVED"`
	Country  string `form:"country" validate:"max=100"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type InternationalResponse struct {
	ID            uuid.UUID  `json:"id"`
	ContactName   string     `json:"contactName"`
	ContactEmail  string     `json:"contactEmail"`
	ContactPhone  string     `json:"contactPhone"`
	Company       string     `json:"company"`
	Country       string     `json:"country"`
	EventName     string     `json:"eventName"`
	StartDatetime *time.Time `json:"startDatetime,omitempty"`
	EndDatetime   *time.Time `json:"endDatetime,omitempty"`
	Pax           int        `json:"pax"`
	Notes         string     `json:"notes"`
	SalespersonID *uuid.UUID `json:"salespersonId,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
