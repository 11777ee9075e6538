package workorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

const defaultNotifyTimeout = 10 * time.Second

type Service struct {
	orders        interfaces.WorkOrderRepository
	contracts     interfaces.ContractRepository
	users         interfaces.UserRepository
	notifier      interfaces.NotificationService
	logger        logger.Logger
	now           func() time.Time
	notifyTimeout time.Duration
	inflight      sync.WaitGroup
}

type Option func(*Service)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(
	orders interfaces.WorkOrderRepository,
	contracts interfaces.ContractRepository,
	users interfaces.UserRepository,
	notifier interfaces.NotificationService,
	logger logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		orders:        orders,
		contracts:     contracts,
		users:         users,
		notifier:      notifier,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ interfaces.WorkOrderService = (*Service)(nil)

func (s *Service) CreateWorkOrder(ctx context.Context, cmd interfaces.CreateWorkOrderCommand) (*domain.WorkOrder, error) {
	// 1. Кто создает заказ
	clientID := cmd.ClientID
	switch {
	case cmd.Actor.Role == domain.RoleClient:
		if clientID != uuid.Nil && clientID != cmd.Actor.UserID {
			return nil, fmt.Errorf("%w: clients create orders only for themselves", domain.ErrForbidden)
		}
		clientID = cmd.Actor.UserID
	case cmd.Actor.Role.IsStaff():
		if clientID == uuid.Nil {
			return nil, fmt.Errorf("%w: client is required", domain.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: role %s cannot create work orders", domain.ErrForbidden, cmd.Actor.Role)
	}

	// 2. Доменная сущность
	order, err := domain.NewWorkOrder(clientID, cmd.Category, cmd.Priority, cmd.Title, cmd.Description, s.now())
	if err != nil {
		return nil, err
	}
	order.SiteLatitude = cmd.SiteLatitude
	order.SiteLongitude = cmd.SiteLongitude
	if err := order.Validate(); err != nil {
		return nil, err
	}

	// 3. SLA из контракта
	if cmd.ContractID != nil {
		contract, err := s.contractFor(ctx, *cmd.ContractID, clientID)
		if err != nil {
			return nil, err
		}
		order.ContractID = &contract.ID
		order.ApplySLA(contract.PolicyFor(order.Priority))
	}

	// 4. Номер заказа
	number, err := s.orders.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}
	order.Number = number

	// 5. Сохранение вместе с первой записью журнала
	if err := s.orders.Create(ctx, order, order.CreationLog(cmd.Actor.UserID)); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create work order", "", nil, err)
		return nil, err
	}

	s.logger.Info("work_order_created", "Work order created", "", map[string]interface{}{
		"order_number": order.Number,
		"priority":     order.Priority,
		"sla_tracked":  !order.SLA.IsZero(),
	})

	created := *order
	s.async(func(ctx context.Context) { s.notifier.NotifyCreated(ctx, &created, cmd.Actor) })

	return order, nil
}

// Transition is the only path that changes a work order's status.
func (s *Service) Transition(ctx context.Context, cmd interfaces.TransitionCommand) (*domain.WorkOrder, error) {
	var from domain.Status

	if cmd.To == domain.StatusScheduled && cmd.Data.TechnicianID != nil {
		if _, err := s.activeTechnician(ctx, *cmd.Data.TechnicianID); err != nil {
			return nil, err
		}
	}

	updated, err := s.orders.Mutate(ctx, cmd.OrderID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		if err := authorizeParticipant(o, cmd.Actor); err != nil {
			return nil, err
		}
		from = o.Status
		if cmd.ExpectedFrom != nil && *cmd.ExpectedFrom != from {
			return nil, &domain.TransitionError{From: from, To: cmd.To, Reason: domain.ReasonStaleStatus}
		}
		return o.TransitionTo(cmd.To, cmd.Actor.Role, cmd.Actor.UserID, cmd.Data, s.now())
	})
	if err != nil {
		s.logger.Debug("transition_rejected", "Work order transition rejected", "", map[string]interface{}{
			"order_id": cmd.OrderID,
			"to":       cmd.To,
			"role":     cmd.Actor.Role,
			"reason":   err.Error(),
		})
		return nil, err
	}

	details := map[string]interface{}{
		"order_number": updated.Number,
		"from":         from,
		"to":           updated.Status,
		"role":         cmd.Actor.Role,
	}
	if from == domain.StatusScheduled && updated.Status == domain.StatusInProgress {
		s.checkGeofence(updated, cmd.Data, details)
	}
	s.logger.Info("work_order_transitioned", "Work order status changed", "", details)

	snapshot := *updated
	s.async(func(ctx context.Context) { s.notifier.NotifyTransition(ctx, &snapshot, from, cmd.Actor) })

	return updated, nil
}

func (s *Service) checkGeofence(o *domain.WorkOrder, data domain.TransitionData, details map[string]interface{}) {
	if !o.HasSite() || data.Latitude == nil || data.Longitude == nil {
		return
	}
	dist := domain.DistanceKm(*data.Latitude, *data.Longitude, *o.SiteLatitude, *o.SiteLongitude)
	details["check_in_distance_km"] = dist
	if dist > domain.DefaultGeofenceRadiusKm {
		s.logger.Warn("check_in_outside_geofence", "Technician checked in away from the site", "", map[string]interface{}{
			"order_number": o.Number,
			"distance_km":  dist,
		})
	}
}

func (s *Service) AssignTechnician(ctx context.Context, cmd interfaces.AssignTechnicianCommand) (*domain.WorkOrder, error) {
	if !cmd.Actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: only admins and managers assign technicians", domain.ErrForbidden)
	}

	tech, err := s.activeTechnician(ctx, cmd.TechnicianID)
	if err != nil {
		return nil, err
	}

	updated, err := s.orders.Mutate(ctx, cmd.OrderID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		if o.Status != domain.StatusRequested && o.Status != domain.StatusScheduled {
			return nil, fmt.Errorf("%w: cannot reassign an order in status %s", domain.ErrValidation, o.Status)
		}
		now := s.now()
		o.TechnicianID = &tech.ID
		if cmd.ScheduledDate != nil {
			o.ScheduledDate = cmd.ScheduledDate
		}
		if o.AssignedAt == nil {
			o.AssignedAt = &now
		}
		o.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("technician_assigned", "Technician assigned", "", map[string]interface{}{
		"order_number":  updated.Number,
		"technician_id": tech.ID,
	})

	snapshot := *updated
	s.async(func(ctx context.Context) { s.notifier.NotifyAssigned(ctx, &snapshot, cmd.Actor) })

	return updated, nil
}

// UnassignTechnician clears the assignment of an order that has not been
// scheduled yet.
func (s *Service) UnassignTechnician(ctx context.Context, orderID uuid.UUID, actor domain.Actor) (*domain.WorkOrder, error) {
	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: only admins and managers unassign technicians", domain.ErrForbidden)
	}

	return s.orders.Mutate(ctx, orderID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		if o.Status != domain.StatusRequested {
			return nil, fmt.Errorf("%w: cannot unassign an order in status %s", domain.ErrValidation, o.Status)
		}
		o.TechnicianID = nil
		o.ScheduledDate = nil
		o.AssignedAt = nil
		o.UpdatedAt = s.now()
		return nil, nil
	})
}

// AttachContract links a contract to an order that has none. Deadlines
// are computed from the order's creation time and only if none exist.
func (s *Service) AttachContract(ctx context.Context, orderID, contractID uuid.UUID, actor domain.Actor) (*domain.WorkOrder, error) {
	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: only admins and managers attach contracts", domain.ErrForbidden)
	}

	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contractFor(ctx, contractID, current.ClientID)
	if err != nil {
		return nil, err
	}

	return s.orders.Mutate(ctx, orderID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		if o.ContractID != nil && *o.ContractID != contract.ID {
			return nil, fmt.Errorf("%w: order already has contract %s", domain.ErrValidation, *o.ContractID)
		}
		o.ContractID = &contract.ID
		o.ApplySLA(contract.PolicyFor(o.Priority))
		o.UpdatedAt = s.now()
		return nil, nil
	})
}

func (s *Service) SetSubStatus(ctx context.Context, orderID uuid.UUID, sub *domain.SubStatus, actor domain.Actor) (*domain.WorkOrder, error) {
	return s.orders.Mutate(ctx, orderID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		if !actor.Role.IsStaff() && !(actor.Role == domain.RoleTechnician && o.IsAssignedTo(actor.UserID)) {
			return nil, fmt.Errorf("%w: only the assigned technician or staff set sub-status", domain.ErrForbidden)
		}
		if o.Status != domain.StatusInProgress && o.Status != domain.StatusPending {
			return nil, fmt.Errorf("%w: status %s has no sub-status", domain.ErrValidation, o.Status)
		}
		if !domain.ValidSubStatus(o.Status, sub) {
			return nil, fmt.Errorf("%w: sub-status not allowed in %s", domain.ErrValidation, o.Status)
		}
		o.SubStatus = sub
		o.UpdatedAt = s.now()
		return nil, nil
	})
}

// DeleteWorkOrder removes an order with its logs, materials and quotations.
func (s *Service) DeleteWorkOrder(ctx context.Context, orderID uuid.UUID, actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only admins delete work orders", domain.ErrForbidden)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("work_order_deleted", "Work order deleted", "", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})
	return nil
}

// Wait blocks until in-flight notification fan-outs finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// async runs fn detached from the request context. Panics and failures
// never reach the caller.
func (s *Service) async(fn func(ctx context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification_failed", "Notification fan-out panicked", "", nil, fmt.Errorf("%v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// activeTechnician resolves id to a user who may be put on an order.
func (s *Service) activeTechnician(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	tech, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tech.Role != domain.RoleTechnician || !tech.Active {
		return nil, fmt.Errorf("%w: user %s is not an active technician", domain.ErrValidation, tech.ID)
	}
	return tech, nil
}

func (s *Service) contractFor(ctx context.Context, contractID, clientID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, fmt.Errorf("%w: contract %s belongs to another client", domain.ErrValidation, contract.ID)
	}
	if !contract.Active {
		return nil, fmt.Errorf("%w: contract %s is inactive", domain.ErrValidation, contract.ID)
	}
	return contract, nil
}

// authorizeParticipant limits clients to their own orders and technicians
// to the orders assigned to them. Staff and finance act on any order.
func authorizeParticipant(o *domain.WorkOrder, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleClient:
		if o.ClientID != actor.UserID {
			return fmt.Errorf("%w: order belongs to another client", domain.ErrForbidden)
		}
	case domain.RoleTechnician:
		if !o.IsAssignedTo(actor.UserID) {
			return fmt.Errorf("%w: order is not assigned to this technician", domain.ErrForbidden)
		}
	}
	return nil
}
