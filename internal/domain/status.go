package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusPending    Status = "PENDING"
	StatusCompleted  Status = "COMPLETED"
	StatusInvoiced   Status = "INVOICED"
	StatusClosed     Status = "CLOSED"
	StatusCancelled  Status = "CANCELLED"
)

// AllStatuses lists every lifecycle state in lifecycle order.
var AllStatuses = []Status{
	StatusRequested,
	StatusScheduled,
	StatusInProgress,
	StatusPending,
	StatusCompleted,
	StatusInvoiced,
	StatusClosed,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

type Priority string

const (
	PriorityNormal    Priority = "NORMAL"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

type Category string

const (
	CategoryElectrical Category = "ELECTRICAL"
	CategoryMechanical Category = "MECHANICAL"
	CategoryHVAC       Category = "HVAC"
	CategoryPlumbing   Category = "PLUMBING"
	CategoryCivil      Category = "CIVIL"
	CategoryOther      Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryElectrical, CategoryMechanical, CategoryHVAC, CategoryPlumbing, CategoryCivil, CategoryOther:
		return true
	}
	return false
}

// WorkOrderLog is one immutable entry of an order's status timeline.
// PreviousStatus is nil for the row written at creation.
type WorkOrderLog struct {
	ID             uuid.UUID
	WorkOrderID    uuid.UUID
	PreviousStatus *Status
	NewStatus      Status
	Note           string
	Latitude       *float64
	Longitude      *float64
	ChangedBy      uuid.UUID
	CreatedAt      time.Time
}
