package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkOrder represents a service request tracked through its lifecycle
type WorkOrder struct {
	ID            uuid.UUID
	Number        string
	ClientID      uuid.UUID
	TechnicianID  *uuid.UUID
	ContractID    *uuid.UUID
	Category      Category
	Priority      Priority
	Title         string
	Description   string
	Status        Status
	SubStatus     *SubStatus
	SiteLatitude  *float64
	SiteLongitude *float64
	ScheduledDate *time.Time
	AssignedAt    *time.Time
	CheckInAt     *time.Time
	CheckOutAt    *time.Time
	CompletedAt   *time.Time
	WorkReport    string
	InvoiceID     string
	SLA           SLADeadlines
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewWorkOrder creates a REQUESTED order with business rules applied
func NewWorkOrder(clientID uuid.UUID, category Category, priority Priority, title, description string, now time.Time) (*WorkOrder, error) {
	order := &WorkOrder{
		ID:          uuid.New(),
		ClientID:    clientID,
		Category:    category,
		Priority:    priority,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      StatusRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// Validate applies business validation rules
func (o *WorkOrder) Validate() error {
	if o.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client is required", ErrValidation)
	}
	if !o.Category.Valid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, o.Category)
	}
	if !o.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, o.Priority)
	}
	if len(o.Title) < 1 || len(o.Title) > 200 {
		return fmt.Errorf("%w: title must be 1-200 characters", ErrValidation)
	}
	if (o.SiteLatitude == nil) != (o.SiteLongitude == nil) {
		return fmt.Errorf("%w: site latitude and longitude go together", ErrValidation)
	}
	return nil
}

// ApplySLA sets the deadlines from policy unless some are already set.
// Returns false when the deadlines were left untouched.
func (o *WorkOrder) ApplySLA(policy *SLAPolicy) bool {
	if !o.SLA.IsZero() || policy == nil {
		return false
	}
	o.SLA = ComputeDeadlines(o.CreatedAt, policy)
	return true
}

// TransitionTo validates and applies a status change, returning the log
// entry that records it. The order is left untouched on error.
func (o *WorkOrder) TransitionTo(to Status, role Role, actorID uuid.UUID, data TransitionData, now time.Time) (*WorkOrderLog, error) {
	from := o.Status

	// Assignment made through the edit path satisfies scheduling.
	if data.TechnicianID == nil {
		data.TechnicianID = o.TechnicianID
	}
	if data.ScheduledDate == nil {
		data.ScheduledDate = o.ScheduledDate
	}

	if err := CanTransition(from, to, role, data).Err(from, to); err != nil {
		return nil, err
	}
	if !ValidSubStatus(to, data.SubStatus) {
		return nil, &TransitionError{From: from, To: to, Reason: ReasonInvalidSubStatus}
	}

	note := strings.TrimSpace(data.Note)

	switch to {
	case StatusScheduled:
		o.TechnicianID = data.TechnicianID
		o.ScheduledDate = data.ScheduledDate
		if o.AssignedAt == nil {
			o.AssignedAt = &now
		}
	case StatusInProgress:
		if from == StatusScheduled {
			o.CheckInAt = data.CheckInAt
		}
	case StatusPending:
		if note == "" {
			note = strings.TrimSpace(data.PauseReason)
		}
	case StatusCompleted:
		o.CheckOutAt = data.CheckOutAt
		o.WorkReport = strings.TrimSpace(data.WorkReport)
		o.CompletedAt = &now
	case StatusInvoiced:
		o.InvoiceID = strings.TrimSpace(data.InvoiceID)
	}

	o.Status = to
	o.SubStatus = NormalizeSubStatus(to, data.SubStatus)
	o.UpdatedAt = now

	prev := from
	return &WorkOrderLog{
		ID:             uuid.New(),
		WorkOrderID:    o.ID,
		PreviousStatus: &prev,
		NewStatus:      to,
		Note:           note,
		Latitude:       data.Latitude,
		Longitude:      data.Longitude,
		ChangedBy:      actorID,
		CreatedAt:      now,
	}, nil
}

// CreationLog is the first timeline entry of a newly created order.
func (o *WorkOrder) CreationLog(actorID uuid.UUID) *WorkOrderLog {
	return &WorkOrderLog{
		ID:          uuid.New(),
		WorkOrderID: o.ID,
		NewStatus:   o.Status,
		Note:        "Orden creada",
		ChangedBy:   actorID,
		CreatedAt:   o.CreatedAt,
	}
}

// IsAssignedTo reports whether userID is the order's technician.
func (o *WorkOrder) IsAssignedTo(userID uuid.UUID) bool {
	return o.TechnicianID != nil && *o.TechnicianID == userID
}

// HasSite reports whether the order carries site coordinates.
func (o *WorkOrder) HasSite() bool {
	return o.SiteLatitude != nil && o.SiteLongitude != nil
}

// FormatOrderNumber renders a sequence value as WO-########.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("WO-%08d", seq)
}
