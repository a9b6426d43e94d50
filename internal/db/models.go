package db

import "time"

// Command outcomes.
const (
	OutcomeOK           = "ok"
	OutcomePartial      = "partial"
	OutcomeError        = "error"
	OutcomeUsage        = "usage"
	OutcomeUnrecognized = "unrecognized"
)

// Session is one interactive run of the assistant.
type Session struct {
	ID        string
	StartedAt time.Time
}

// Command is one executed input line.
type Command struct {
	ID        int64
	SessionID string
	Kind      string
	Argument  string
	Outcome   string
	Message   string
	StartedAt time.Time
	Duration  time.Duration
}

// KindCount is the number of journaled commands of one kind.
type KindCount struct {
	Kind   string
	Total  int
	Failed int
}

// Stats summarizes the journal for the history page.
type Stats struct {
	Sessions int
	Commands int
	Failed   int
	ByKind   []KindCount
}
