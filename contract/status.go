package contract

// transitions lists the legal status moves enforced by the lifecycle engine.
// Draft is initial; expired is terminal; rejected re-enters the approval
// cycle via submit.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusRejected:        {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusExecuted},
	StatusExecuted:        {StatusExpired},
	StatusExpired:         nil,
}

// ValidStatus reports whether s is one of the six lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusExecuted, StatusExpired:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Submittable reports whether a contract in this status may be submitted for
// approval.
func Submittable(s Status) bool {
	return s == StatusDraft || s == StatusRejected
}
