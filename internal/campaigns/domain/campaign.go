// Package domain holds campaign vocabulary, the send window and report
// aggregation.
package domain

import "time"

const (
	TypeAuto = "AUTO"
	TypeUser = "USER"
)

const (
	KindFollowUp   = "FOLLOW_UP"
	KindConfirm    = "CONFIRM_EMAIL"
	KindLost       = "LOST_EMAIL"
	KindInvoice    = "INVOICE_EMAIL"
	KindBirthday   = "BIRTHDAY"
	KindNewsletter = "NEWSLETTER"
)

const (
	StatusPending   = "PENDING"
	StatusSending   = "SENDING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusArchived  = "ARCHIVED"
)

// Source entity types a campaign may point back to.
const (
	SourceInquiry = "inquiry"
	SourceClient  = "client"
)

// Recipient is one entry of a campaign's send_to list.
type Recipient struct {
	Email     string                 `json:"email"`
	Name      string                 `json:"name,omitempty"`
	CC        []string               `json:"cc,omitempty"`
	Signature string                 `json:"signature,omitempty"`
	Vars      map[string]interface{} `json:"vars,omitempty"`
}

// IsKind reports whether k is a known campaign kind.
func IsKind(k string) bool {
	switch k {
	case KindFollowUp, KindConfirm, KindLost, KindInvoice, KindBirthday, KindNewsletter:
		return true
	}
	return false
}

// Window is the local-time hour range [StartHour, EndHour) in which
// campaigns may be sent.
type Window struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Open reports whether now falls inside the window.
func (w Window) Open(now time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	hour := now.In(loc).Hour()
	return hour >= w.StartHour && hour < w.EndHour
}
