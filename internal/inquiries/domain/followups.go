package domain

import (
	"time"
)

const day = 24 * time.Hour

// Follow-up list states.
const (
	FollowUpsPending   = "PENDING"
	FollowUpsScheduled = "SCHEDULED"
	FollowUpsSkipped   = "SKIPPED"
	FollowUpsCancelled = "CANCELLED"
)

// Follow-up entry states.
const (
	FollowUpPending   = "PENDING"
	FollowUpSent      = "SENT"
	FollowUpCancelled = "CANCELLED"
)

const (
	FollowUp1 = "FollowUp-1"
	FollowUp2 = "FollowUp-2"
	FollowUp3 = "FollowUp-3"
)

var followUpTemplates = map[string]string{
	FollowUp1: "follow-up-1",
	FollowUp2: "follow-up-2",
	FollowUp3: "follow-up-3",
}

// FollowUp is one scheduled reminder email.
type FollowUp struct {
	Type     string    `json:"type"`
	Date     time.Time `json:"date"`
	Template string    `json:"template"`
	Status   string    `json:"status"`
}

// FollowUps is the follow_ups JSON column. Data is nil until scheduled.
type FollowUps struct {
	Data   []FollowUp `json:"data"`
	Status string     `json:"status"`
}

// InitialFollowUps is the value of a fresh or reset inquiry.
func InitialFollowUps() FollowUps {
	return FollowUps{Data: nil, Status: FollowUpsPending}
}

// DaysUntil returns whole days between now and start, rounded down.
func DaysUntil(now, start time.Time) int {
	d := start.Sub(now)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// PlanFollowUps returns the reminders for an event starting at start. Every
// returned date is strictly after now and strictly before start. The result is
// never nil; no reminders is an empty slice.
func PlanFollowUps(now, start time.Time) []FollowUp {
	days := DaysUntil(now, start)

	planned := make([]FollowUp, 0, 3)
	add := func(kind string, at time.Time) {
		planned = append(planned, FollowUp{
			Type:     kind,
			Date:     at,
			Template: followUpTemplates[kind],
			Status:   FollowUpPending,
		})
	}

	switch {
	case days <= 2:
		return planned
	case days <= 3:
		add(FollowUp3, now.Add(day))
	case days <= 7:
		add(FollowUp3, now.Add(2*day))
	case days <= 14:
		add(FollowUp2, now.Add(2*day))
		add(FollowUp3, start.Add(-5*day))
	default:
		add(FollowUp1, now.Add(2*day))
		add(FollowUp2, now.Add(time.Duration(days/2)*day))
		if last := start.Add(-5 * day); last.After(now) {
			add(FollowUp3, last)
		}
	}

	kept := planned[:0]
	for _, f := range planned {
		if f.Date.After(now) && f.Date.Before(start) {
			kept = append(kept, f)
		}
	}
	return kept
}

// Schedule stores the plan and derives the list status.
func (f FollowUps) Schedule(planned []FollowUp) FollowUps {
	if len(planned) == 0 {
		return FollowUps{Data: []FollowUp{}, Status: FollowUpsSkipped}
	}
	return FollowUps{Data: planned, Status: FollowUpsScheduled}
}

// Cancel marks every pending entry cancelled and sets the list CANCELLED.
func (f FollowUps) Cancel() FollowUps {
	out := FollowUps{Status: FollowUpsCancelled}
	if f.Data != nil {
		out.Data = make([]FollowUp, len(f.Data))
		for i, entry := range f.Data {
			if entry.Status == FollowUpPending {
				entry.Status = FollowUpCancelled
			}
			out.Data[i] = entry
		}
	}
	return out
}

// HasPending reports whether any entry is waiting to be sent.
func (f FollowUps) HasPending() bool {
	for _, entry := range f.Data {
		if entry.Status == FollowUpPending {
			return true
		}
	}
	return false
}

// MarkSent flags the pending entry using template as SENT. It returns the
// entry type and false when no such entry exists.
func (f FollowUps) MarkSent(template string) (FollowUps, string, bool) {
	out := FollowUps{Status: f.Status, Data: make([]FollowUp, len(f.Data))}
	copy(out.Data, f.Data)
	for i, entry := range out.Data {
		if entry.Template == template && entry.Status == FollowUpPending {
			out.Data[i].Status = FollowUpSent
			return out, entry.Type, true
		}
	}
	return f, "", false
}
