package session

import (
	"fmt"
	"strings"
)

// ApprovalCheckPolicy decides what happens when the approval status cannot
// be read for a reason other than an expired access token.
type ApprovalCheckPolicy int

const (
	// FailOpen lets the login through without a confirmed status. This is
	// the historical behaviour of the portal.
	FailOpen ApprovalCheckPolicy = iota
	// FailClosed revokes the fresh tokens and fails the attempt.
	FailClosed
)

func (p ApprovalCheckPolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// allowUnverified is the only place the fail-open decision is taken.
func (p ApprovalCheckPolicy) allowUnverified() bool {
	return p != FailClosed
}

func ParsePolicy(raw string) (ApprovalCheckPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fail_open", "open":
		return FailOpen, nil
	case "fail_closed", "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown approval check policy %q", raw)
	}
}
