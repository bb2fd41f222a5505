package transport

import (
	"time"

	"github.com/google/uuid"
)

type ListEventsRequest struct {
	Status         string     `form:"status" validate:"omitempty,oneof=ACTIVE FINISHED CANCELLED"`
	SoftwareStatus string     `form:"softwareStatus" validate:"omitempty,oneof=PENDING ARCHIVED"`
	From           *time.Time `form:"from" time_format:"2006-01-02"`
	To             *time.Time `form:"to" time_format:"2006-01-02"`
	Search         string     `form:"search" validate:"max=100"`
	Page           int        `form:"page" validate:"omitempty,min=1"`
	PageSize       int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type Logistics struct {
	LoadIn    *time.Time `json:"loadIn,omitempty"`
	LoadOut   *time.Time `json:"loadOut,omitempty"`
	Crew      []string   `json:"crew,omitempty" validate:"omitempty,max=50,dive,max=200"`
	Equipment []string   `json:"equipment,omitempty" validate:"omitempty,max=200,dive,max=200"`
	Software  string     `json:"software,omitempty" validate:"omitempty,max=200"`
	Notes     string     `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type UpdateEventRequest struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Venue     *string    `json:"venue,omitempty" validate:"omitempty,max=200"`
	Pax       *int       `json:"pax,omitempty" validate:"omitempty,min=0,max=100000"`
	Logistics *Logistics `json:"logistics,omitempty"`
}

type PortalCodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type EventResponse struct {
	ID             uuid.UUID  `json:"id"`
	InquiryID      uuid.UUID  `json:"inquiryId"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
	Name           string     `json:"name"`
	Venue          string     `json:"venue"`
	Pax            int        `json:"pax"`
	StartDatetime  time.Time  `json:"startDatetime"`
	EndDatetime    time.Time  `json:"endDatetime"`
	Logistics      Logistics  `json:"logistics"`
	Status         string     `json:"status"`
	SoftwareStatus string     `json:"softwareStatus"`
	PortalCode     *string    `json:"portalCode,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
