package activity

import "time"

// Actions recorded against the activity log. One constant per lifecycle
// transition plus the non-transition events dashboards surface.
const (
	ActionContractCreated   = "CONTRACT_CREATED"
	ActionContractUpdated   = "CONTRACT_UPDATED"
	ActionContractSubmitted = "CONTRACT_SUBMITTED"
	ActionContractApproved  = "CONTRACT_APPROVED"
	ActionContractRejected  = "CONTRACT_REJECTED"
	ActionContractExecuted  = "CONTRACT_EXECUTED"
	ActionContractExpired   = "CONTRACT_EXPIRED"
	ActionVersionRestored   = "VERSION_RESTORED"
)

// Entry is one append-only activity fact: who did what, optionally tied to a
// contract. Entries are never mutated or deleted.
type Entry struct {
	ID         int64
	ContractID *string
	UserID     string
	Action     string
	Details    string
	Timestamp  time.Time
}
