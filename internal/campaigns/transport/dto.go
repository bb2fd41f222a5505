package transport

import (
	"time"

	"github.com/google/uuid"
)

type RecipientRequest struct {
	Email string                 `json:"email" validate:"required,email"`
	Name  string                 `json:"name,omitempty" validate:"omitempty,max=200"`
	CC    []string               `json:"cc,omitempty" validate:"omitempty,max=10,dive,email"`
	Vars  map[string]interface{} `json:"vars,omitempty"`
}

type CreateCampaignRequest struct {
	Name        string             `json:"name" validate:"required,min=1,max=200"`
	Kind        string             `json:"kind,omitempty" validate:"omitempty,oneof=NEWSLETTER BIRTHDAY FOLLOW_UP CONFIRM_EMAIL LOST_EMAIL INVOICE_EMAIL"`
	TemplateKey string             `json:"templateKey,omitempty" validate:"omitempty,max=100"`
	Subject     string             `json:"subject,omitempty" validate:"omitempty,max=300"`
	HTML        string             `json:"html,omitempty" validate:"omitempty,max=200000"`
	SendOn      *time.Time         `json:"sendOn,omitempty"`
	Recipients  []RecipientRequest `json:"recipients,omitempty" validate:"omitempty,max=5000,dive"`
	List        string             `json:"list,omitempty" validate:"omitempty,max=100"`
}

type ListCampaignsRequest struct {
	Type     string `form:"type" validate:"omitempty,oneof=AUTO USER"`
	Kind     string `form:"kind" validate:"omitempty,max=50"`
	Status   string `form:"status" validate:"omitempty,oneof=PENDING SENDING COMPLETED CANCELLED ARCHIVED"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type RecipientResponse struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	CC    []string `json:"cc,omitempty"`
}

type CampaignResponse struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Type             string              `json:"type"`
	Kind             string              `json:"kind"`
	Status           string              `json:"status"`
	TemplateKey      *string             `json:"templateKey,omitempty"`
	Subject          string              `json:"subject,omitempty"`
	SendOn           time.Time           `json:"sendOn"`
	SendTo           []RecipientResponse `json:"sendTo"`
	SourceEntityType *string             `json:"sourceEntityType,omitempty"`
	SourceEntityID   *uuid.UUID          `json:"sourceEntityId,omitempty"`
	Attempts         int                 `json:"attempts"`
	LastError        string              `json:"lastError,omitempty"`
	SentAt           *time.Time          `json:"sentAt,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}
