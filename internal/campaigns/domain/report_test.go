package domain

import (
	"testing"
	"time"
)

func TestBuildReport_ClickWithSameURLCountsOnce(t *testing.T) {
	rows := []ReportRow{
		{Email: "a@example.com", Event: EventSend},
		{Email: "a@example.com", Event: EventClick, ClickURL: "https://x.example.com"},
		{Email: "a@example.com", Event: EventClick, ClickURL: "https://x.example.com"},
	}

	r := BuildReport(rows)
	if r.Clicks != 1 {
		t.Fatalf("expected 1 click, got %d", r.Clicks)
	}
	if len(r.Recipients) != 1 || len(r.Recipients[0].Events) != 2 {
		t.Fatalf("expected duplicate click folded, got %+v", r.Recipients)
	}
}

func TestBuildReport_CountsDistinctEmails(t *testing.T) {
	rows := []ReportRow{
		{Email: "a@example.com", Event: EventOpen},
		{Email: "a@example.com", Event: EventOpen},
		{Email: "b@example.com", Event: EventDelivered},
		{Email: "c@example.com", Event: EventHardBounce},
		{Email: "d@example.com", Event: EventSoftBounce},
		{Email: "e@example.com", Event: EventReject},
		{Email: "f@example.com", Event: "unknown"},
	}

	r := BuildReport(rows)
	if r.Sent != 5 {
		t.Fatalf("expected sent 5, got %d", r.Sent)
	}
	if r.Delivered != 2 {
		t.Fatalf("expected delivered 2 (open implies delivered), got %d", r.Delivered)
	}
	if r.Opens != 1 {
		t.Fatalf("expected opens 1, got %d", r.Opens)
	}
	if r.Bounced != 2 {
		t.Fatalf("expected bounced 2, got %d", r.Bounced)
	}
	if r.Rejected != 1 {
		t.Fatalf("expected rejected 1, got %d", r.Rejected)
	}
}

func TestBuildReport_TagsSortedByLifecycle(t *testing.T) {
	rows := []ReportRow{
		{Email: "a@example.com", Event: EventClick, ClickURL: "u"},
		{Email: "a@example.com", Event: EventSend},
		{Email: "a@example.com", Event: EventOpen},
		{Email: "a@example.com", Event: EventDelivered},
	}

	got := BuildReport(rows).Recipients[0].Tags
	want := []string{EventSend, EventDelivered, EventOpen, EventClick}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWindow_Open(t *testing.T) {
	w := Window{StartHour: 5, EndHour: 15, Location: time.UTC}
	cases := []struct {
		hour int
		want bool
	}{
		{4, false},
		{5, true},
		{14, true},
		{15, false},
		{23, false},
	}
	for _, tc := range cases {
		now := time.Date(2026, 3, 1, tc.hour, 30, 0, 0, time.UTC)
		if got := w.Open(now); got != tc.want {
			t.Fatalf("hour %d: expected %v, got %v", tc.hour, tc.want, got)
		}
	}
}
