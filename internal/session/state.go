package session

import "equipment-portal/internal/model"

type State int

const (
	StateAuthenticating State = iota
	StateTokenIssued
	StateCheckingApproval
	StateRefreshing
	StateRetryingApproval
	StateApproved
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateTokenIssued:
		return "token_issued"
	case StateCheckingApproval:
		return "checking_approval"
	case StateRefreshing:
		return "refreshing"
	case StateRetryingApproval:
		return "retrying_approval"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateFailed
}

// Reasons carried by terminal outcomes.
const (
	ReasonInvalidCredentials = "Invalid credentials"
	ReasonSessionExpired     = "Session expired. Please login again."
	ReasonUnverified         = "Unable to verify account status"
	ReasonStoreUnavailable   = "Unable to save session"
	ReasonPendingApproval    = "Sorry, your account is pending approval. Please try again after approval."
)

// Outcome is the terminal result of one login attempt.
type Outcome struct {
	State  State
	Reason string
	User   *model.UserStatus
}

func (o Outcome) Approved() bool {
	return o.State == StateApproved
}

func approved(user *model.UserStatus) Outcome {
	return Outcome{State: StateApproved, User: user}
}

func rejected(user *model.UserStatus) Outcome {
	return Outcome{State: StateRejected, Reason: ReasonPendingApproval, User: user}
}

func failed(reason string) Outcome {
	return Outcome{State: StateFailed, Reason: reason}
}
