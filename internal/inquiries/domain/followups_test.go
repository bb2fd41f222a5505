package domain

import (
	"testing"
	"time"
)

var base = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestPlanFollowUps_NoneWithinTwoDays(t *testing.T) {
	for _, offset := range []time.Duration{-48 * time.Hour, 0, 12 * time.Hour, 47 * time.Hour, 71 * time.Hour} {
		planned := PlanFollowUps(base, base.Add(offset))
		if planned == nil {
			t.Fatalf("offset %s: expected an empty slice, got nil", offset)
		}
		if len(planned) != 0 {
			t.Fatalf("offset %s: expected no follow-ups, got %d", offset, len(planned))
		}
		if got := (FollowUps{}).Schedule(planned).Status; got != FollowUpsSkipped {
			t.Fatalf("offset %s: expected %s, got %s", offset, FollowUpsSkipped, got)
		}
	}
}

func TestPlanFollowUps_ThreeForDistantEvents(t *testing.T) {
	for days := 15; days <= 120; days++ {
		start := base.Add(time.Duration(days) * day)
		planned := PlanFollowUps(base, start)
		if len(planned) != 3 {
			t.Fatalf("days %d: expected 3 follow-ups, got %d", days, len(planned))
		}
		for _, f := range planned {
			if !f.Date.Before(start) || !f.Date.After(base) {
				t.Fatalf("days %d: %s date %s outside (now, start)", days, f.Type, f.Date)
			}
		}
	}
}

func TestPlanFollowUps_TwentyDaysOut(t *testing.T) {
	start := base.Add(20 * day)
	planned := PlanFollowUps(base, start)

	want := []FollowUp{
		{Type: FollowUp1, Date: base.Add(2 * day), Template: "follow-up-1", Status: FollowUpPending},
		{Type: FollowUp2, Date: base.Add(10 * day), Template: "follow-up-2", Status: FollowUpPending},
		{Type: FollowUp3, Date: base.Add(15 * day), Template: "follow-up-3", Status: FollowUpPending},
	}
	if len(planned) != len(want) {
		t.Fatalf("expected %d follow-ups, got %d", len(want), len(planned))
	}
	for i := range want {
		got := planned[i]
		if got.Type != want[i].Type || !got.Date.Equal(want[i].Date) || got.Template != want[i].Template || got.Status != want[i].Status {
			t.Fatalf("follow-up %d: expected %+v, got %+v", i, want[i], planned[i])
		}
	}

	if got := (FollowUps{}).Schedule(planned).Status; got != FollowUpsScheduled {
		t.Fatalf("expected %s, got %s", FollowUpsScheduled, got)
	}
}

func TestPlanFollowUps_Bands(t *testing.T) {
	cases := []struct {
		days  int
		types []string
	}{
		{3, []string{FollowUp3}},
		{5, []string{FollowUp3}},
		{7, []string{FollowUp3}},
		{8, []string{FollowUp2, FollowUp3}},
		{14, []string{FollowUp2, FollowUp3}},
	}
	for _, tc := range cases {
		planned := PlanFollowUps(base, base.Add(time.Duration(tc.days)*day))
		if len(planned) != len(tc.types) {
			t.Fatalf("days %d: expected %v, got %+v", tc.days, tc.types, planned)
		}
		for i, kind := range tc.types {
			if planned[i].Type != kind {
				t.Fatalf("days %d: expected %s at %d, got %s", tc.days, kind, i, planned[i].Type)
			}
		}
	}
}

func TestDaysUntil_Floors(t *testing.T) {
	if got := DaysUntil(base, base.Add(3*day-time.Minute)); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := DaysUntil(base, base.Add(-time.Hour)); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestFollowUps_CancelIsIdempotent(t *testing.T) {
	f := (FollowUps{}).Schedule(PlanFollowUps(base, base.Add(20*day)))
	f.Data[0].Status = FollowUpSent

	once := f.Cancel()
	twice := once.Cancel()

	if twice.Status != FollowUpsCancelled {
		t.Fatalf("expected %s, got %s", FollowUpsCancelled, twice.Status)
	}
	if twice.Data[0].Status != FollowUpSent {
		t.Fatalf("expected sent entry untouched, got %s", twice.Data[0].Status)
	}
	for _, entry := range twice.Data[1:] {
		if entry.Status != FollowUpCancelled {
			t.Fatalf("expected %s, got %s", FollowUpCancelled, entry.Status)
		}
	}
	if f.Data[1].Status != FollowUpPending {
		t.Fatal("Cancel must not mutate the receiver")
	}
}

func TestFollowUps_MarkSent(t *testing.T) {
	f := (FollowUps{}).Schedule(PlanFollowUps(base, base.Add(20*day)))

	updated, kind, ok := f.MarkSent("follow-up-2")
	if !ok || kind != FollowUp2 {
		t.Fatalf("expected FollowUp-2 marked, got %q %v", kind, ok)
	}
	if updated.Data[1].Status != FollowUpSent {
		t.Fatalf("expected SENT, got %s", updated.Data[1].Status)
	}
	if f.Data[1].Status != FollowUpPending {
		t.Fatal("MarkSent must not mutate the receiver")
	}
	if _, _, ok := updated.MarkSent("follow-up-2"); ok {
		t.Fatal("expected second MarkSent to find nothing pending")
	}
}
