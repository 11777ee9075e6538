package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contract binds a client to billing terms and per-priority SLA policies.
type Contract struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	Name       string
	HourlyRate float64
	Active     bool
	Policies   []SLAPolicy
	CreatedAt  time.Time
}

// SLAPolicy holds the minutes-to-deadline targets for one priority.
type SLAPolicy struct {
	ContractID           uuid.UUID
	Priority             Priority
	FirstResponseMinutes int
	OnSiteMinutes        int
	ResolutionMinutes    int
	PenaltyPercent       float64
}

// PolicyFor returns the policy row for priority, or nil when the contract
// defines none.
func (c *Contract) PolicyFor(priority Priority) *SLAPolicy {
	if c == nil {
		return nil
	}
	for i := range c.Policies {
		if c.Policies[i].Priority == priority {
			p := c.Policies[i]
			return &p
		}
	}
	return nil
}
