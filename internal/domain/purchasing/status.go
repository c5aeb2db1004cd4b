package purchasing

import (
	"fmt"
	"strings"

	"github.com/erp/procurement/internal/domain/shared"
)

// Status represents the lifecycle status of a purchase order
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusPendingPayment    Status = "PENDING_PAYMENT"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
	StatusCompleted         Status = "COMPLETED"
	StatusCancelled         Status = "CANCELLED"
)

// transitions lists the legal forward edges out of each non-terminal status
var transitions = map[Status][]Status{
	StatusPending:           {StatusReceived, StatusPendingPayment, StatusPartiallyReceived, StatusCancelled},
	StatusPendingPayment:    {StatusReceived, StatusPartiallyReceived, StatusCancelled},
	StatusPartiallyReceived: {StatusReceived, StatusCompleted, StatusCancelled},
	StatusReceived:          {StatusCompleted},
}

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusPendingPayment,
		StatusPartiallyReceived,
		StatusReceived,
		StatusCompleted,
		StatusCancelled,
	}
}

// ParseStatus parses a status name, case-insensitively
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewValidationError(shared.CodeInvalidStatus, fmt.Sprintf("unknown status %q", s))
	}
	return status, nil
}

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPendingPayment, StatusPartiallyReceived,
		StatusReceived, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition may leave this status
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo checks if the status can move to target along a forward edge
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable in one step
func (s Status) NextStatuses() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// TransitionOutcome describes what a transition request did
type TransitionOutcome string

const (
	// OutcomeApplied means the status changed (and stock was reconciled if required)
	OutcomeApplied TransitionOutcome = "applied"
	// OutcomeUnchanged means the order already held the target status
	OutcomeUnchanged TransitionOutcome = "unchanged"
	// OutcomeAlreadyReceived means the receipt had already been reconciled;
	// nothing was mutated
	OutcomeAlreadyReceived TransitionOutcome = "already_received"
)

// TransitionPlan is the decision taken for a transition request against the
// order's current state
type TransitionPlan struct {
	From      Status
	To        Status
	Outcome   TransitionOutcome
	Reconcile bool
}

// PlanTransition decides what moving o to target would do without changing o.
// Terminal orders reject every request. For target RECEIVED the receipt flag is
// consulted before the same-status check, so a repeated receive reports
// OutcomeAlreadyReceived.
func (o *PurchaseOrder) PlanTransition(target Status) (TransitionPlan, error) {
	plan := TransitionPlan{From: o.Status, To: target}
	if !target.IsValid() {
		return plan, shared.NewValidationError(shared.CodeInvalidStatus, fmt.Sprintf("unknown status %q", target))
	}
	if o.Status.IsTerminal() {
		return plan, shared.NewConflictError(shared.CodeInvalidTransition,
			fmt.Sprintf("purchase order %s is %s and cannot change status", o.OrderNumber, o.Status))
	}
	if target == StatusReceived && o.IsReceived() {
		plan.Outcome = OutcomeAlreadyReceived
		return plan, nil
	}
	if target == o.Status {
		plan.Outcome = OutcomeUnchanged
		return plan, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return plan, shared.NewConflictError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot move purchase order %s from %s to %s", o.OrderNumber, o.Status, target))
	}

	plan.Outcome = OutcomeApplied
	plan.Reconcile = (target == StatusReceived || target == StatusCompleted) && !o.IsReceived()
	return plan, nil
}
