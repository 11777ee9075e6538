package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransitionData is the caller-supplied input a transition is checked against.
type TransitionData struct {
	TechnicianID    *uuid.UUID
	ScheduledDate   *time.Time
	CheckInAt       *time.Time
	CheckOutAt      *time.Time
	PauseReason     string
	WorkReport      string
	InvoiceID       string
	PaymentComplete bool
	SubStatus       *SubStatus
	Note            string
	Latitude        *float64
	Longitude       *float64
}

// Precondition reports whether data satisfies a transition's requirement.
type Precondition func(data TransitionData) bool

// Transition is one row of the lifecycle table.
type Transition struct {
	From         Status
	To           Status
	Roles        []Role
	Precondition Precondition
}

func (t Transition) allows(role Role) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func hasText(s string) bool { return strings.TrimSpace(s) != "" }

// transitions is the only definition of the work order lifecycle.
var transitions = []Transition{
	{
		From:  StatusRequested,
		To:    StatusScheduled,
		Roles: []Role{RoleAdmin, RoleManager},
		Precondition: func(d TransitionData) bool {
			return d.TechnicianID != nil && *d.TechnicianID != uuid.Nil && d.ScheduledDate != nil
		},
	},
	{
		From:  StatusRequested,
		To:    StatusCancelled,
		Roles: []Role{RoleAdmin, RoleManager, RoleClient},
	},
	{
		From:  StatusScheduled,
		To:    StatusInProgress,
		Roles: []Role{RoleTechnician},
		Precondition: func(d TransitionData) bool {
			return d.CheckInAt != nil
		},
	},
	{
		From:  StatusScheduled,
		To:    StatusCancelled,
		Roles: []Role{RoleAdmin, RoleManager, RoleClient},
	},
	{
		From:  StatusInProgress,
		To:    StatusPending,
		Roles: []Role{RoleTechnician},
		Precondition: func(d TransitionData) bool {
			return hasText(d.PauseReason)
		},
	},
	{
		From:  StatusInProgress,
		To:    StatusCompleted,
		Roles: []Role{RoleTechnician},
		Precondition: func(d TransitionData) bool {
			return d.CheckOutAt != nil && hasText(d.WorkReport)
		},
	},
	{
		// Resuming paused work needs no re-validation.
		From:  StatusPending,
		To:    StatusInProgress,
		Roles: []Role{RoleTechnician, RoleAdmin, RoleManager},
	},
	{
		From:  StatusPending,
		To:    StatusCancelled,
		Roles: []Role{RoleAdmin, RoleManager, RoleClient},
	},
	{
		From:  StatusCompleted,
		To:    StatusInvoiced,
		Roles: []Role{RoleAdmin, RoleManager, RoleFinance},
		Precondition: func(d TransitionData) bool {
			return hasText(d.InvoiceID)
		},
	},
	{
		From:  StatusInvoiced,
		To:    StatusClosed,
		Roles: []Role{RoleAdmin, RoleManager, RoleFinance},
		Precondition: func(d TransitionData) bool {
			return d.PaymentComplete
		},
	},
}

// Transitions returns a copy of the lifecycle table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func findTransition(from, to Status) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Decision is the outcome of CanTransition. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanTransition checks the edge, then the role, then the precondition.
func CanTransition(from, to Status, role Role, data TransitionData) Decision {
	t, ok := findTransition(from, to)
	if !ok {
		return Decision{Reason: ReasonNoSuchTransition}
	}
	if !t.allows(role) {
		return Decision{Reason: ReasonRoleNotAllowed}
	}
	if t.Precondition != nil && !t.Precondition(data) {
		return Decision{Reason: ReasonPrecondition}
	}
	return Decision{Allowed: true}
}

// Err converts a refused decision into a *TransitionError.
func (d Decision) Err(from, to Status) error {
	if d.Allowed {
		return nil
	}
	return &TransitionError{From: from, To: to, Reason: d.Reason}
}

// ValidNextStates lists targets reachable from `from` by role, ignoring
// preconditions.
func ValidNextStates(from Status, role Role) []Status {
	var out []Status
	for _, t := range transitions {
		if t.From == from && t.allows(role) {
			out = append(out, t.To)
		}
	}
	return out
}
