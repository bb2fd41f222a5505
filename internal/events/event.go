// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"ims_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Inquiry Domain Events
// =============================================================================

// InquirySubmitted is published after proposals were sent to the contact.
type InquirySubmitted struct {
	BaseEvent
	InquiryID   uuid.UUID   `json:"inquiryId"`
	ProposalIDs []uuid.UUID `json:"proposalIds"`
}

func (e InquirySubmitted) EventName() string { return "inquiries.inquiry.submitted" }

// InquiryConfirmed is published after the confirm transaction committed.
type InquiryConfirmed struct {
	BaseEvent
	InquiryID   uuid.UUID   `json:"inquiryId"`
	ClientID    *uuid.UUID  `json:"clientId,omitempty"`
	ProposalIDs []uuid.UUID `json:"proposalIds"`
	CampaignID  uuid.UUID   `json:"campaignId"`
}

func (e InquiryConfirmed) EventName() string { return "inquiries.inquiry.confirmed" }

// InquiryLost is published after an inquiry was marked lost.
type InquiryLost struct {
	BaseEvent
	InquiryID  uuid.UUID `json:"inquiryId"`
	Reason     string    `json:"reason"`
	CampaignID uuid.UUID `json:"campaignId"`
}

func (e InquiryLost) EventName() string { return "inquiries.inquiry.lost" }

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignQueued is published when a campaign due now was created outside the scheduler.
type CampaignQueued struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	Kind       string    `json:"kind"`
}

func (e CampaignQueued) EventName() string { return "campaigns.campaign.queued" }

// CampaignCompleted is published once a campaign reached COMPLETED.
type CampaignCompleted struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	Kind       string    `json:"kind"`
	Recipients int       `json:"recipients"`
}

func (e CampaignCompleted) EventName() string { return "campaigns.campaign.completed" }

// =============================================================================
// Client Domain Events
// =============================================================================

// ClientBounced is published by the webhook when a recipient hard or soft bounced.
type ClientBounced struct {
	BaseEvent
	Email      string    `json:"email"`
	CampaignID uuid.UUID `json:"campaignId"`
	Event      string    `json:"event"`
}

func (e ClientBounced) EventName() string { return "clients.client.bounced" }
