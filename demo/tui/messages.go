package tui

import (
	"time"

	"storyreel/types"
)

// StatusUpdateMsg carries a polled status
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// SubmittedMsg is sent once a request was submitted
type SubmittedMsg struct {
	ID  string
	Err error
}

// RegeneratedMsg reports a regeneration attempt
type RegeneratedMsg struct {
	Scene    int
	Replaced bool
	Err      error
}
