package domain

import (
	"math"
	"time"
)

type SLAStatus string

const (
	SLAStatusOK       SLAStatus = "OK"
	SLAStatusCritical SLAStatus = "CRITICAL"
	SLAStatusOverdue  SLAStatus = "OVERDUE"
)

// SLACriticalWindow is how close to a deadline an SLA turns CRITICAL.
const SLACriticalWindow = 30 * time.Minute

// SLADeadlines are fixed at creation relative to CreatedAt.
type SLADeadlines struct {
	FirstResponse *time.Time
	OnSite        *time.Time
	Resolution    *time.Time
}

// IsZero reports whether no deadline is tracked.
func (d SLADeadlines) IsZero() bool {
	return d.FirstResponse == nil && d.OnSite == nil && d.Resolution == nil
}

type SLAEvaluation struct {
	Deadline         time.Time
	RemainingMs      int64
	RemainingMinutes int64
	IsOverdue        bool
	Status           SLAStatus
}

type SLAReport struct {
	FirstResponse *SLAEvaluation
	OnSite        *SLAEvaluation
	Resolution    *SLAEvaluation
}

// ComputeDeadlines offsets createdAt by each of the policy's targets. A nil
// policy means the order is not SLA-tracked.
func ComputeDeadlines(createdAt time.Time, policy *SLAPolicy) SLADeadlines {
	if policy == nil {
		return SLADeadlines{}
	}
	return SLADeadlines{
		FirstResponse: addMinutes(createdAt, policy.FirstResponseMinutes),
		OnSite:        addMinutes(createdAt, policy.OnSiteMinutes),
		Resolution:    addMinutes(createdAt, policy.ResolutionMinutes),
	}
}

func addMinutes(t time.Time, minutes int) *time.Time {
	d := t.Add(time.Duration(minutes) * time.Minute)
	return &d
}

// EvaluateSLA reports the state of deadline at now. Returns nil for a nil
// deadline.
func EvaluateSLA(deadline *time.Time, now time.Time) *SLAEvaluation {
	if deadline == nil {
		return nil
	}
	remaining := deadline.Sub(now).Milliseconds()

	status := SLAStatusOK
	switch {
	case remaining < 0:
		status = SLAStatusOverdue
	case remaining < SLACriticalWindow.Milliseconds():
		status = SLAStatusCritical
	}

	return &SLAEvaluation{
		Deadline:         *deadline,
		RemainingMs:      remaining,
		RemainingMinutes: int64(math.Floor(float64(remaining) / 60000)),
		IsOverdue:        remaining < 0,
		Status:           status,
	}
}

func EvaluateDeadlines(d SLADeadlines, now time.Time) SLAReport {
	return SLAReport{
		FirstResponse: EvaluateSLA(d.FirstResponse, now),
		OnSite:        EvaluateSLA(d.OnSite, now),
		Resolution:    EvaluateSLA(d.Resolution, now),
	}
}

type ComplianceOutcome string

const (
	ComplianceMet      ComplianceOutcome = "MET"
	ComplianceMissed   ComplianceOutcome = "MISSED"
	ComplianceExcluded ComplianceOutcome = "EXCLUDED"
)

// CheckCompliance compares when an event actually happened with its
// deadline. Orders lacking either timestamp are excluded from tallies.
func CheckCompliance(deadline, actual *time.Time) ComplianceOutcome {
	if deadline == nil || actual == nil {
		return ComplianceExcluded
	}
	if actual.After(*deadline) {
		return ComplianceMissed
	}
	return ComplianceMet
}

type ComplianceTally struct {
	Met    int
	Missed int
}

func (t *ComplianceTally) add(o ComplianceOutcome) {
	switch o {
	case ComplianceMet:
		t.Met++
	case ComplianceMissed:
		t.Missed++
	}
}

// Rate is the share of met targets, or 0 when nothing was measured.
func (t ComplianceTally) Rate() float64 {
	total := t.Met + t.Missed
	if total == 0 {
		return 0
	}
	return float64(t.Met) / float64(total)
}

type ComplianceSummary struct {
	Orders        int
	FirstResponse ComplianceTally
	OnSite        ComplianceTally
	Resolution    ComplianceTally
}

// SummarizeCompliance tallies first response against AssignedAt, on-site
// against CheckInAt and resolution against CompletedAt.
func SummarizeCompliance(orders []*WorkOrder) ComplianceSummary {
	var s ComplianceSummary
	for _, o := range orders {
		if o == nil {
			continue
		}
		s.Orders++
		s.FirstResponse.add(CheckCompliance(o.SLA.FirstResponse, o.AssignedAt))
		s.OnSite.add(CheckCompliance(o.SLA.OnSite, o.CheckInAt))
		s.Resolution.add(CheckCompliance(o.SLA.Resolution, o.CompletedAt))
	}
	return s
}
