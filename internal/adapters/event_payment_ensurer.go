package adapters

import (
	"context"
	"fmt"

	engagementsvc "ims_backend/internal/engagements/service"
	inquirysvc "ims_backend/internal/inquiries/service"

	"github.com/google/uuid"
)

// PaymentDrafter derives the payment of an inquiry from its confirmed proposals.
type PaymentDrafter interface {
	PaymentDraft(ctx context.Context, inquiryID uuid.UUID) (inquirysvc.PaymentDraft, error)
}

// EventPaymentEnsurer makes sure a finished event has its payment row.
// It implements engagements/service.PaymentEnsurer.
type EventPaymentEnsurer struct {
	inquiries PaymentDrafter
	payments  PaymentWriter
}

func NewEventPaymentEnsurer(inquiries PaymentDrafter, payments PaymentWriter) *EventPaymentEnsurer {
	return &EventPaymentEnsurer{inquiries: inquiries, payments: payments}
}

// EnsureForInquiry upserts the payment. An UNPAID or CLEARED payment is left
// untouched by the repository.
func (a *EventPaymentEnsurer) EnsureForInquiry(ctx context.Context, inquiryID uuid.UUID, clientID *uuid.UUID) error {
	draft, err := a.inquiries.PaymentDraft(ctx, inquiryID)
	if err != nil {
		return fmt.Errorf("derive payment for finished event: %w", err)
	}
	if draft.ClientID == nil {
		draft.ClientID = clientID
	}
	return a.payments.UpsertForInquiry(ctx, toPayment(draft))
}

var _ engagementsvc.PaymentEnsurer = (*EventPaymentEnsurer)(nil)
