package domain

import "time"

// Activity is one line of the append-only inquiry history.
type Activity struct {
	Message  string    `json:"message"`
	DateTime time.Time `json:"date_time"`
}

// ScopeItem is one solution on the scope of work with its optional extras.
type ScopeItem struct {
	Solution string   `json:"solution"`
	Extras   []string `json:"extras"`
}
