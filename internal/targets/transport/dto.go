package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateTargetRequest struct {
	Month  int             `json:"month" validate:"required,min=1,max=12"`
	Year   int             `json:"year" validate:"required,min=2000,max=2100"`
	Amount decimal.Decimal `json:"amount"`
}

type UpdateTargetRequest struct {
	Month  *int             `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Year   *int             `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type ListTargetsRequest struct {
	Year int `form:"year" validate:"omitempty,min=2000,max=2100"`
}

type TargetResponse struct {
	ID        uuid.UUID       `json:"id"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
