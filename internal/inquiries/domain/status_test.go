package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusSubmitted, true},
		{StatusNew, StatusConfirmed, false},
		{StatusSubmitted, StatusSubmitted, true},
		{StatusSubmitted, StatusConfirmed, true},
		{StatusSubmitted, StatusLost, true},
		{StatusConfirmed, StatusSubmitted, true},
		{StatusConfirmed, StatusLost, false},
		{StatusConfirmed, StatusDeleted, false},
		{StatusLost, StatusSubmitted, false},
		{StatusDeleted, StatusNew, false},
		{StatusNew, StatusDeleted, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
