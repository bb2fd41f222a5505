package domain

import "sort"

// Report event names as delivered by the email vendor.
const (
	EventSend       = "send"
	EventDelivered  = "delivered"
	EventOpen       = "open"
	EventClick      = "click"
	EventReject     = "reject"
	EventSoftBounce = "soft_bounce"
	EventHardBounce = "hard_bounce"
)

var tagOrder = map[string]int{
	EventSend:       0,
	EventDelivered:  1,
	EventOpen:       2,
	EventClick:      3,
	EventReject:     4,
	EventSoftBounce: 5,
	EventHardBounce: 6,
}

// IsReportEvent reports whether name is a tracked report event.
func IsReportEvent(name string) bool {
	_, ok := tagOrder[name]
	return ok
}

// IsBounce reports whether name is a soft or hard bounce.
func IsBounce(name string) bool {
	return name == EventSoftBounce || name == EventHardBounce
}

// ReportRow is one stored webhook callback.
type ReportRow struct {
	Email    string
	Event    string
	ClickURL string
}

type ReportEvent struct {
	Event    string `json:"event"`
	ClickURL string `json:"clickUrl,omitempty"`
}

type RecipientReport struct {
	Email  string        `json:"email"`
	Events []ReportEvent `json:"events"`
	Tags   []string      `json:"tags"`
}

type Report struct {
	Sent       int               `json:"sent"`
	Delivered  int               `json:"delivered"`
	Opens      int               `json:"opens"`
	Clicks     int               `json:"clicks"`
	Rejected   int               `json:"rejected"`
	Bounced    int               `json:"bounced"`
	Recipients []RecipientReport `json:"recipients"`
}

// BuildReport folds report rows per email. Identical (event, click URL) pairs
// for one email count once, and every counter counts distinct emails.
func BuildReport(rows []ReportRow) Report {
	type acc struct {
		events []ReportEvent
		seen   map[ReportEvent]bool
		tags   map[string]bool
	}

	byEmail := make(map[string]*acc)
	var order []string
	for _, row := range rows {
		if row.Email == "" || !IsReportEvent(row.Event) {
			continue
		}
		a, ok := byEmail[row.Email]
		if !ok {
			a = &acc{seen: map[ReportEvent]bool{}, tags: map[string]bool{}}
			byEmail[row.Email] = a
			order = append(order, row.Email)
		}
		ev := ReportEvent{Event: row.Event, ClickURL: row.ClickURL}
		if a.seen[ev] {
			continue
		}
		a.seen[ev] = true
		a.events = append(a.events, ev)
		a.tags[row.Event] = true
	}

	report := Report{Recipients: make([]RecipientReport, 0, len(order))}
	for _, email := range order {
		a := byEmail[email]
		tags := make([]string, 0, len(a.tags))
		for t := range a.tags {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tagOrder[tags[i]] < tagOrder[tags[j]] })

		report.Sent++
		if a.tags[EventDelivered] || a.tags[EventOpen] {
			report.Delivered++
		}
		if a.tags[EventOpen] {
			report.Opens++
		}
		if a.tags[EventClick] {
			report.Clicks++
		}
		if a.tags[EventReject] {
			report.Rejected++
		}
		if a.tags[EventSoftBounce] || a.tags[EventHardBounce] {
			report.Bounced++
		}
		report.Recipients = append(report.Recipients, RecipientReport{Email: email, Events: a.events, Tags: tags})
	}
	return report
}
