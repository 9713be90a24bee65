package approval

import (
	"time"

	"contractflow/contract"
)

// Status enumerates the states of one approver's review request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Approval is one approver's request on one submission round. ActionDate is
// set exactly when the row leaves pending. Round starts at 1 and increments
// with every resubmission.
type Approval struct {
	ID          string
	ContractID  string
	ApproverID  string
	Round       int
	Status      Status
	Feedback    *string
	RequestedAt time.Time
	ActionDate  *time.Time
}

// RosterEntry pairs an approval with its approver's display identity.
type RosterEntry struct {
	Approval
	ApproverName     string
	ApproverInitials string
}

// PendingReview is an item on an approver's work queue. Roster carries every
// approval on the contract, so callers can show partial consensus state.
type PendingReview struct {
	Approval Approval
	Contract contract.Contract
	Roster   []RosterEntry
}

// Decision is an approver's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approved"
	DecisionReject  Decision = "rejected"
)

// ReviewParams carries one review action.
type ReviewParams struct {
	ApprovalID string
	ActorID    string
	Decision   Decision
	Feedback   string
}
