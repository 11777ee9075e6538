package tracking

import (
	"context"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

type Service struct {
	orderRepo interfaces.WorkOrderRepository
	logger    logger.Logger
	now       func() time.Time
}

func NewService(orderRepo interfaces.WorkOrderRepository, logger logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		orderRepo: orderRepo,
		logger:    logger,
		now:       now,
	}
}

var _ interfaces.TrackingService = (*Service)(nil)

func (s *Service) GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*interfaces.TrackingOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, order)
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*interfaces.TrackingOrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, order)
}

// describe evaluates the SLA against the current time on every call.
func (s *Service) describe(ctx context.Context, order *domain.WorkOrder) (*interfaces.TrackingOrderResponse, error) {
	now := s.now()
	resp := &interfaces.TrackingOrderResponse{
		Order:            order,
		SLA:              domain.EvaluateDeadlines(order.SLA, now),
		SubStatusOptions: domain.SubStatusOptions(order.Status),
		EvaluatedAt:      now,
	}

	if order.CheckInAt != nil && order.HasSite() {
		history, err := s.orderRepo.GetStatusHistory(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if entry := checkInEntry(history); entry != nil {
			dist := domain.DistanceKm(*entry.Latitude, *entry.Longitude, *order.SiteLatitude, *order.SiteLongitude)
			within := dist <= domain.DefaultGeofenceRadiusKm
			resp.CheckInDistanceKm = &dist
			resp.CheckInOnSite = &within
		}
	}

	return resp, nil
}

// checkInEntry finds the SCHEDULED -> IN_PROGRESS log row carrying GPS.
func checkInEntry(history []*domain.WorkOrderLog) *domain.WorkOrderLog {
	for _, l := range history {
		if l.PreviousStatus != nil && *l.PreviousStatus == domain.StatusScheduled &&
			l.NewStatus == domain.StatusInProgress && l.Latitude != nil && l.Longitude != nil {
			return l
		}
	}
	return nil
}

func (s *Service) GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]*domain.WorkOrderLog, error) {
	return s.orderRepo.GetStatusHistory(ctx, orderID)
}

// GetAvailableActions lists the statuses role may move the order to.
func (s *Service) GetAvailableActions(ctx context.Context, orderID uuid.UUID, role domain.Role) ([]domain.Status, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return domain.ValidNextStates(order.Status, role), nil
}

// GetComplianceReport summarizes SLA compliance for one client, or for all
// orders when clientID is nil.
func (s *Service) GetComplianceReport(ctx context.Context, clientID *uuid.UUID) (*domain.ComplianceSummary, error) {
	var (
		orders []*domain.WorkOrder
		err    error
	)
	if clientID != nil {
		orders, err = s.orderRepo.ListByClient(ctx, *clientID)
	} else {
		orders, err = s.orderRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	summary := domain.SummarizeCompliance(orders)
	s.logger.Debug("compliance_report", "SLA compliance computed", "", map[string]interface{}{
		"orders":          summary.Orders,
		"resolution_rate": summary.Resolution.Rate(),
	})
	return &summary, nil
}
