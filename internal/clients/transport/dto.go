package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateClientRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=200"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     string     `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company   string     `json:"company,omitempty" validate:"omitempty,max=200"`
	List      string     `json:"list,omitempty" validate:"omitempty,max=80"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

type UpdateClientRequest struct {
	Name       *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone      *string    `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company    *string    `json:"company,omitempty" validate:"omitempty,max=200"`
	List       *string    `json:"list,omitempty" validate:"omitempty,min=1,max=80"`
	Subscribed *bool      `json:"subscribed,omitempty"`
	BirthDate  *time.Time `json:"birthDate,omitempty"`
}

type ListClientsRequest struct {
	List       string `form:"list" validate:"omitempty,max=80"`
	Subscribed *bool  `form:"subscribed"`
	Search     string `form:"search" validate:"max=100"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=name totalSpent createdAt"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ClientResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Company        string          `json:"company"`
	List           string          `json:"list"`
	Subscribed     bool            `json:"subscribed"`
	BirthDate      *time.Time      `json:"birthDate,omitempty"`
	LastWishedAt   *time.Time      `json:"lastWishedDatetime,omitempty"`
	TotalInquiries int             `json:"totalInquiries"`
	TotalEvents    int             `json:"totalEvents"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
