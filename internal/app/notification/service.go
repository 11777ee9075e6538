package notification

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

const TypeWorkOrder = "work_order"

type Service struct {
	dispatcher interfaces.Dispatcher
	users      interfaces.UserRepository
	counters   interfaces.CounterStore
	logger     logger.Logger
}

func NewService(dispatcher interfaces.Dispatcher, users interfaces.UserRepository, counters interfaces.CounterStore, logger logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		users:      users,
		counters:   counters,
		logger:     logger,
	}
}

var _ interfaces.NotificationService = (*Service)(nil)

// audience is who hears about an order reaching a status.
type audience struct {
	client     bool
	technician bool
	staff      bool
}

var audienceByStatus = map[domain.Status]audience{
	domain.StatusRequested:  {staff: true},
	domain.StatusScheduled:  {client: true, technician: true},
	domain.StatusInProgress: {client: true},
	domain.StatusPending:    {client: true, staff: true},
	domain.StatusCompleted:  {client: true, staff: true},
	domain.StatusInvoiced:   {client: true},
	domain.StatusClosed:     {client: true},
	domain.StatusCancelled:  {client: true, technician: true, staff: true},
}

var titleByStatus = map[domain.Status]string{
	domain.StatusRequested:  "Nueva orden de trabajo",
	domain.StatusScheduled:  "Orden programada",
	domain.StatusInProgress: "Trabajo en curso",
	domain.StatusPending:    "Orden en pausa",
	domain.StatusCompleted:  "Trabajo completado",
	domain.StatusInvoiced:   "Orden facturada",
	domain.StatusClosed:     "Orden cerrada",
	domain.StatusCancelled:  "Orden cancelada",
}

func (s *Service) NotifyCreated(ctx context.Context, order *domain.WorkOrder, actor domain.Actor) {
	msg := fmt.Sprintf("Se registró la orden %s: %s", order.Number, order.Title)
	s.fanOut(ctx, order, actor, audienceByStatus[domain.StatusRequested], titleByStatus[domain.StatusRequested], msg)
}

func (s *Service) NotifyTransition(ctx context.Context, order *domain.WorkOrder, from domain.Status, actor domain.Actor) {
	aud, ok := audienceByStatus[order.Status]
	if !ok {
		return
	}
	msg := fmt.Sprintf("La orden %s pasó de %s a %s", order.Number, from, order.Status)
	s.fanOut(ctx, order, actor, aud, titleByStatus[order.Status], msg)
}

func (s *Service) NotifyAssigned(ctx context.Context, order *domain.WorkOrder, actor domain.Actor) {
	msg := fmt.Sprintf("Se te asignó la orden %s: %s", order.Number, order.Title)
	s.fanOut(ctx, order, actor, audience{technician: true}, "Orden asignada", msg)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.counters.Get(ctx, unreadKey(userID))
}

func (s *Service) MarkRead(ctx context.Context, userID uuid.UUID) error {
	return s.counters.Reset(ctx, unreadKey(userID))
}

func unreadKey(userID uuid.UUID) string {
	return "notifications:unread:" + userID.String()
}

func (s *Service) fanOut(ctx context.Context, order *domain.WorkOrder, actor domain.Actor, aud audience, title, message string) {
	for _, userID := range s.recipients(ctx, order, actor, aud) {
		if err := s.dispatcher.Send(ctx, userID, title, message, TypeWorkOrder, order.ID.String()); err != nil {
			// Не блокируем процесс из-за ошибки уведомления
			s.logger.Error("notification_failed", "Failed to dispatch notification", "", map[string]interface{}{
				"order_number": order.Number,
				"user_id":      userID,
			}, err)
			continue
		}
		if _, err := s.counters.Incr(ctx, unreadKey(userID)); err != nil {
			s.logger.Error("counter_failed", "Failed to bump unread counter", "", map[string]interface{}{
				"user_id": userID,
			}, err)
		}
	}
}

// recipients resolves an audience to user ids, dropping the actor and
// duplicates.
func (s *Service) recipients(ctx context.Context, order *domain.WorkOrder, actor domain.Actor, aud audience) []uuid.UUID {
	seen := map[uuid.UUID]bool{actor.UserID: true, uuid.Nil: true}
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	if aud.client {
		add(order.ClientID)
	}
	if aud.technician && order.TechnicianID != nil {
		add(*order.TechnicianID)
	}
	if aud.staff {
		staff, err := s.users.ListByRoles(ctx, domain.RoleAdmin, domain.RoleManager)
		if err != nil {
			s.logger.Error("notification_failed", "Failed to resolve admin/manager pool", "", map[string]interface{}{
				"order_number": order.Number,
			}, err)
		}
		for _, u := range staff {
			add(u.ID)
		}
	}
	return out
}
