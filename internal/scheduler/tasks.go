package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCampaignDispatch = "campaigns.dispatch"

const TaskClientBirthdays = "clients.birthdays"

// Dispatch trigger reasons.
const (
	ReasonCron      = "cron"
	ReasonQueued    = "queued"
	ReasonConfirmed = "confirmed"
	ReasonLost      = "lost"
)

type CampaignDispatchPayload struct {
	Reason     string `json:"reason"`
	CampaignID string `json:"campaignId,omitempty"`
}

type ClientBirthdaysPayload struct {
	// Date is YYYY-MM-DD; empty means today in the send location.
	Date string `json:"date,omitempty"`
}

func NewCampaignDispatchTask(payload CampaignDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignDispatch, data), nil
}

func ParseCampaignDispatchPayload(task *asynq.Task) (CampaignDispatchPayload, error) {
	var payload CampaignDispatchPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CampaignDispatchPayload{}, err
	}
	return payload, nil
}

func NewClientBirthdaysTask(payload ClientBirthdaysPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClientBirthdays, data), nil
}

func ParseClientBirthdaysPayload(task *asynq.Task) (ClientBirthdaysPayload, error) {
	var payload ClientBirthdaysPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ClientBirthdaysPayload{}, err
	}
	return payload, nil
}
