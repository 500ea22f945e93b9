package request

// Outcome is the terminal state of one request attempt. It is not persisted
// beyond the rendered chat message unless the history subsystem is enabled.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDenied    Outcome = "denied"
	OutcomeApproved  Outcome = "approved"
)
