package interfaces

import (
	"context"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/google/uuid"
)

// MutateFunc runs inside the repository transaction on a freshly locked
// copy of the order. Returning an error rolls back; a non-nil log is
// appended in the same transaction as the order update.
type MutateFunc func(order *domain.WorkOrder) (*domain.WorkOrderLog, error)

// Интерфейсы Репозиториев (Adapter/Postgres, Adapter/Memory)
type WorkOrderRepository interface {
	Create(ctx context.Context, order *domain.WorkOrder, log *domain.WorkOrderLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.WorkOrder, error)
	FindByNumber(ctx context.Context, number string) (*domain.WorkOrder, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.WorkOrder, error)
	ListAll(ctx context.Context) ([]*domain.WorkOrder, error)
	GenerateOrderNumber(ctx context.Context) (string, error)
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.WorkOrder, error)
	GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]*domain.WorkOrderLog, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListByRoles(ctx context.Context, roles ...domain.Role) ([]*domain.User, error)
}

// CounterStore is a key-value counter shared by request handlers.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}
