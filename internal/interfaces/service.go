package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/google/uuid"
)

// Команды для сервисов
type CreateWorkOrderCommand struct {
	Actor         domain.Actor
	ClientID      uuid.UUID
	ContractID    *uuid.UUID
	Category      domain.Category
	Priority      domain.Priority
	Title         string
	Description   string
	SiteLatitude  *float64
	SiteLongitude *float64
}

// TransitionCommand requests a status change. When ExpectedFrom is set the
// request only applies while the order is still in that status. Callers
// racing on the same order must set it to get a single winner: without it
// a later request is judged against whatever status the earlier one left.
type TransitionCommand struct {
	OrderID      uuid.UUID
	ExpectedFrom *domain.Status
	To           domain.Status
	Actor        domain.Actor
	Data         domain.TransitionData
}

type AssignTechnicianCommand struct {
	OrderID       uuid.UUID
	Actor         domain.Actor
	TechnicianID  uuid.UUID
	ScheduledDate *time.Time
}

// Интерфейсы Сервисов (Business Logic)
type WorkOrderService interface {
	CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (*domain.WorkOrder, error)
	Transition(ctx context.Context, cmd TransitionCommand) (*domain.WorkOrder, error)
	AssignTechnician(ctx context.Context, cmd AssignTechnicianCommand) (*domain.WorkOrder, error)
	UnassignTechnician(ctx context.Context, orderID uuid.UUID, actor domain.Actor) (*domain.WorkOrder, error)
	AttachContract(ctx context.Context, orderID, contractID uuid.UUID, actor domain.Actor) (*domain.WorkOrder, error)
	SetSubStatus(ctx context.Context, orderID uuid.UUID, sub *domain.SubStatus, actor domain.Actor) (*domain.WorkOrder, error)
	DeleteWorkOrder(ctx context.Context, orderID uuid.UUID, actor domain.Actor) error
}

type TrackingService interface {
	GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*TrackingOrderResponse, error)
	GetOrderByNumber(ctx context.Context, number string) (*TrackingOrderResponse, error)
	GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]*domain.WorkOrderLog, error)
	GetAvailableActions(ctx context.Context, orderID uuid.UUID, role domain.Role) ([]domain.Status, error)
	GetComplianceReport(ctx context.Context, clientID *uuid.UUID) (*domain.ComplianceSummary, error)
}

type NotificationService interface {
	NotifyCreated(ctx context.Context, order *domain.WorkOrder, actor domain.Actor)
	NotifyTransition(ctx context.Context, order *domain.WorkOrder, from domain.Status, actor domain.Actor)
	NotifyAssigned(ctx context.Context, order *domain.WorkOrder, actor domain.Actor)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID uuid.UUID) error
}

// Ответы Tracking Service
type TrackingOrderResponse struct {
	Order             *domain.WorkOrder
	SLA               domain.SLAReport
	SubStatusOptions  []*domain.SubStatus
	CheckInDistanceKm *float64
	CheckInOnSite     *bool
	EvaluatedAt       time.Time
}
