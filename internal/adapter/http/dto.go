package http

import (
	"time"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

type CreateWorkOrderRequest struct {
	ClientID      *uuid.UUID `json:"client_id,omitempty"`
	ContractID    *uuid.UUID `json:"contract_id,omitempty"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	SiteLatitude  *float64   `json:"site_latitude,omitempty"`
	SiteLongitude *float64   `json:"site_longitude,omitempty"`
}

type TransitionRequest struct {
	To              string     `json:"to"`
	ExpectedFrom    string     `json:"expected_from,omitempty"`
	TechnicianID    *uuid.UUID `json:"technician_id,omitempty"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	CheckInAt       *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt      *time.Time `json:"check_out_at,omitempty"`
	PauseReason     string     `json:"pause_reason,omitempty"`
	WorkReport      string     `json:"work_report,omitempty"`
	InvoiceID       string     `json:"invoice_id,omitempty"`
	PaymentComplete bool       `json:"payment_complete,omitempty"`
	SubStatus       *string    `json:"sub_status,omitempty"`
	Note            string     `json:"note,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
}

func (r TransitionRequest) data() domain.TransitionData {
	return domain.TransitionData{
		TechnicianID:    r.TechnicianID,
		ScheduledDate:   r.ScheduledDate,
		CheckInAt:       r.CheckInAt,
		CheckOutAt:      r.CheckOutAt,
		PauseReason:     r.PauseReason,
		WorkReport:      r.WorkReport,
		InvoiceID:       r.InvoiceID,
		PaymentComplete: r.PaymentComplete,
		SubStatus:       subStatusPtr(r.SubStatus),
		Note:            r.Note,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
	}
}

type AssignRequest struct {
	TechnicianID  uuid.UUID  `json:"technician_id"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

type AttachContractRequest struct {
	ContractID uuid.UUID `json:"contract_id"`
}

type SubStatusRequest struct {
	SubStatus *string `json:"sub_status"`
}

type SLADeadlinesResponse struct {
	FirstResponse *time.Time `json:"first_response,omitempty"`
	OnSite        *time.Time `json:"on_site,omitempty"`
	Resolution    *time.Time `json:"resolution,omitempty"`
}

type WorkOrderResponse struct {
	ID            uuid.UUID            `json:"id"`
	Number        string               `json:"number"`
	ClientID      uuid.UUID            `json:"client_id"`
	TechnicianID  *uuid.UUID           `json:"technician_id,omitempty"`
	ContractID    *uuid.UUID           `json:"contract_id,omitempty"`
	Category      string               `json:"category"`
	Priority      string               `json:"priority"`
	Title         string               `json:"title"`
	Description   string               `json:"description,omitempty"`
	Status        string               `json:"status"`
	SubStatus     *string              `json:"sub_status"`
	SiteLatitude  *float64             `json:"site_latitude,omitempty"`
	SiteLongitude *float64             `json:"site_longitude,omitempty"`
	ScheduledDate *time.Time           `json:"scheduled_date,omitempty"`
	AssignedAt    *time.Time           `json:"assigned_at,omitempty"`
	CheckInAt     *time.Time           `json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time           `json:"check_out_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	WorkReport    string               `json:"work_report,omitempty"`
	InvoiceID     string               `json:"invoice_id,omitempty"`
	SLADeadlines  SLADeadlinesResponse `json:"sla_deadlines"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func newWorkOrderResponse(o *domain.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:            o.ID,
		Number:        o.Number,
		ClientID:      o.ClientID,
		TechnicianID:  o.TechnicianID,
		ContractID:    o.ContractID,
		Category:      string(o.Category),
		Priority:      string(o.Priority),
		Title:         o.Title,
		Description:   o.Description,
		Status:        string(o.Status),
		SubStatus:     subStatusString(o.SubStatus),
		SiteLatitude:  o.SiteLatitude,
		SiteLongitude: o.SiteLongitude,
		ScheduledDate: o.ScheduledDate,
		AssignedAt:    o.AssignedAt,
		CheckInAt:     o.CheckInAt,
		CheckOutAt:    o.CheckOutAt,
		CompletedAt:   o.CompletedAt,
		WorkReport:    o.WorkReport,
		InvoiceID:     o.InvoiceID,
		SLADeadlines: SLADeadlinesResponse{
			FirstResponse: o.SLA.FirstResponse,
			OnSite:        o.SLA.OnSite,
			Resolution:    o.SLA.Resolution,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type SLAEvaluationResponse struct {
	Deadline         time.Time `json:"deadline"`
	RemainingMs      int64     `json:"remaining_ms"`
	RemainingMinutes int64     `json:"remaining_minutes"`
	IsOverdue        bool      `json:"is_overdue"`
	Status           string    `json:"status"`
}

type SLAReportResponse struct {
	FirstResponse *SLAEvaluationResponse `json:"first_response"`
	OnSite        *SLAEvaluationResponse `json:"on_site"`
	Resolution    *SLAEvaluationResponse `json:"resolution"`
}

func newSLAEvaluationResponse(e *domain.SLAEvaluation) *SLAEvaluationResponse {
	if e == nil {
		return nil
	}
	return &SLAEvaluationResponse{
		Deadline:         e.Deadline,
		RemainingMs:      e.RemainingMs,
		RemainingMinutes: e.RemainingMinutes,
		IsOverdue:        e.IsOverdue,
		Status:           string(e.Status),
	}
}

type TrackingResponse struct {
	Order             WorkOrderResponse `json:"order"`
	SLA               SLAReportResponse `json:"sla"`
	SubStatusOptions  []*string         `json:"sub_status_options"`
	CheckInDistanceKm *float64          `json:"check_in_distance_km,omitempty"`
	CheckInOnSite     *bool             `json:"check_in_on_site,omitempty"`
	EvaluatedAt       time.Time         `json:"evaluated_at"`
}

func newTrackingResponse(t *interfaces.TrackingOrderResponse) TrackingResponse {
	return TrackingResponse{
		Order: newWorkOrderResponse(t.Order),
		SLA: SLAReportResponse{
			FirstResponse: newSLAEvaluationResponse(t.SLA.FirstResponse),
			OnSite:        newSLAEvaluationResponse(t.SLA.OnSite),
			Resolution:    newSLAEvaluationResponse(t.SLA.Resolution),
		},
		SubStatusOptions:  subStatusStrings(t.SubStatusOptions),
		CheckInDistanceKm: t.CheckInDistanceKm,
		CheckInOnSite:     t.CheckInOnSite,
		EvaluatedAt:       t.EvaluatedAt,
	}
}

type StatusLogResponse struct {
	ID             uuid.UUID `json:"id"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Note           string    `json:"note,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	ChangedBy      uuid.UUID `json:"changed_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func newStatusLogResponse(l *domain.WorkOrderLog) StatusLogResponse {
	var previous *string
	if l.PreviousStatus != nil {
		s := string(*l.PreviousStatus)
		previous = &s
	}
	return StatusLogResponse{
		ID:             l.ID,
		PreviousStatus: previous,
		NewStatus:      string(l.NewStatus),
		Note:           l.Note,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		ChangedBy:      l.ChangedBy,
		CreatedAt:      l.CreatedAt,
	}
}

type ComplianceTallyResponse struct {
	Met    int     `json:"met"`
	Missed int     `json:"missed"`
	Rate   float64 `json:"rate"`
}

type ComplianceReportResponse struct {
	Orders        int                     `json:"orders"`
	FirstResponse ComplianceTallyResponse `json:"first_response"`
	OnSite        ComplianceTallyResponse `json:"on_site"`
	Resolution    ComplianceTallyResponse `json:"resolution"`
}

func newComplianceReportResponse(s *domain.ComplianceSummary) ComplianceReportResponse {
	tally := func(t domain.ComplianceTally) ComplianceTallyResponse {
		return ComplianceTallyResponse{Met: t.Met, Missed: t.Missed, Rate: t.Rate()}
	}
	return ComplianceReportResponse{
		Orders:        s.Orders,
		FirstResponse: tally(s.FirstResponse),
		OnSite:        tally(s.OnSite),
		Resolution:    tally(s.Resolution),
	}
}

func subStatusPtr(s *string) *domain.SubStatus {
	if s == nil {
		return nil
	}
	sub := domain.SubStatus(*s)
	return &sub
}

func subStatusString(sub *domain.SubStatus) *string {
	if sub == nil {
		return nil
	}
	s := string(*sub)
	return &s
}

func subStatusStrings(subs []*domain.SubStatus) []*string {
	out := make([]*string, len(subs))
	for i, sub := range subs {
		out[i] = subStatusString(sub)
	}
	return out
}
