// Package domain provides core business rules for the loans bounded context.
package domain

// Status is the lifecycle state of a loan application. The draft flag is
// derived from status; the two can never disagree.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusQuery     Status = "query"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// transitions maps each state to the set of states reachable from it.
// Approved, rejected and withdrawn are terminal.
var transitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusPending:   true,
		StatusWithdrawn: true,
	},
	StatusPending: {
		StatusQuery:     true,
		StatusApproved:  true,
		StatusRejected:  true,
		StatusWithdrawn: true,
	},
	StatusQuery: {
		StatusPending: true,
	},
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusQuery, StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// IsDraft reports whether the application is still an editable draft.
func (s Status) IsDraft() bool {
	return s == StatusDraft
}

// IsTerminal reports whether no further transitions leave this state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to target is allowed.
func (s Status) CanTransition(target Status) bool {
	return transitions[s][target]
}
