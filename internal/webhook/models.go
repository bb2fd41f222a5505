package webhook

// MandrillEvent is one element of a Mandrill webhook batch.
type MandrillEvent struct {
	ID    string          `json:"_id"`
	TS    int64           `json:"ts"`
	Event string          `json:"event"`
	URL   string          `json:"url,omitempty"`
	Msg   MandrillMessage `json:"msg"`
}

// MandrillMessage is the message an event refers to.
type MandrillMessage struct {
	ID       string                 `json:"_id"`
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"metadata"`
}

// BatchResult summarizes one processed webhook batch.
type BatchResult struct {
	Received int `json:"received"`
	Stored   int `json:"stored"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
