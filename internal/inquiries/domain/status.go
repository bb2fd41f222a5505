// Package domain holds the inquiry state machine, the follow-up planner and
// proposal arithmetic. It has no I/O.
package domain

type Status string

const (
	StatusNew       Status = "NEW"
	StatusSubmitted Status = "SUBMITTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusLost      Status = "LOST"
	StatusDeleted   Status = "DELETED"
)

var transitions = map[Status][]Status{
	StatusNew:       {StatusSubmitted, StatusLost, StatusDeleted},
	StatusSubmitted: {StatusSubmitted, StatusConfirmed, StatusLost, StatusDeleted},
	StatusConfirmed: {StatusSubmitted},
}

// CanTransition reports whether an inquiry may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the inquiry is still being worked by sales.
func (s Status) IsOpen() bool {
	return s == StatusNew || s == StatusSubmitted
}

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusSubmitted, StatusConfirmed, StatusLost, StatusDeleted:
		return true
	}
	return false
}
