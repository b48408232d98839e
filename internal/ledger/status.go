package ledger

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an adjustment record.
type Status string

// Record statuses. The pending strings are the ones existing clients send
// and display.
const (
	StatusPendingAdd         Status = "pending(add)"
	StatusPendingUse         Status = "pending(remove)"
	StatusPendingFaultyStore Status = "pending(remove_fault_store)"
	StatusPendingFaultyUse   Status = "pending(remove_fault_use)"
	StatusPendingTransfer    Status = "pending(transfer)"
	StatusApproved           Status = "approved"
	StatusDeclined           Status = "declined"
)

// Decision is an admin's verdict on a pending record.
type Decision string

// Decisions.
const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// ErrAlreadyDecided is returned when a decision targets a terminal record.
var ErrAlreadyDecided = errors.New("record is no longer pending")

// PendingStatus returns the initial status of a record of kind k.
func PendingStatus(k Kind) Status {
	return moves[k].pending
}

// IsPending reports whether s is one of the pending statuses.
func (s Status) IsPending() bool {
	_, ok := s.Kind()
	return ok
}

// Kind returns the kind a pending status was created for.
func (s Status) Kind() (Kind, bool) {
	for k, m := range moves {
		if m.pending == s {
			return k, true
		}
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Decide applies d to a record in state s.
func Decide(s Status, d Decision) (Status, error) {
	if !s.IsPending() {
		if s.Terminal() {
			return s, fmt.Errorf("%w: %s", ErrAlreadyDecided, s)
		}
		return s, fmt.Errorf("unknown record status %q", string(s))
	}
	switch d {
	case DecisionApprove:
		return StatusApproved, nil
	case DecisionDecline:
		return StatusDeclined, nil
	}
	return s, fmt.Errorf("unknown decision %q", string(d))
}
