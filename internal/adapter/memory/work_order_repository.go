package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

// WorkOrderRepository keeps orders in process memory. Mutate holds the
// store lock for the whole read-modify-write, so transitions serialize.
type WorkOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.WorkOrder
	logs   map[uuid.UUID][]domain.WorkOrderLog
	seq    int64
}

func NewWorkOrderRepository() *WorkOrderRepository {
	return &WorkOrderRepository{
		orders: make(map[uuid.UUID]domain.WorkOrder),
		logs:   make(map[uuid.UUID][]domain.WorkOrderLog),
	}
}

var _ interfaces.WorkOrderRepository = (*WorkOrderRepository)(nil)

func (r *WorkOrderRepository) Create(_ context.Context, order *domain.WorkOrder, log *domain.WorkOrderLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("%w: order %s already exists", domain.ErrPersistence, order.ID)
	}
	for _, o := range r.orders {
		if o.Number == order.Number {
			return fmt.Errorf("%w: duplicate order number %s", domain.ErrPersistence, order.Number)
		}
	}

	r.orders[order.ID] = *order
	if log != nil {
		r.logs[order.ID] = append(r.logs[order.ID], *log)
	}
	return nil
}

func (r *WorkOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (r *WorkOrderRepository) FindByNumber(_ context.Context, number string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.Number == number {
			found := o
			return &found, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
}

func (r *WorkOrderRepository) ListByClient(_ context.Context, clientID uuid.UUID) ([]*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.list(func(o domain.WorkOrder) bool { return o.ClientID == clientID }), nil
}

func (r *WorkOrderRepository) ListAll(_ context.Context) ([]*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.list(func(domain.WorkOrder) bool { return true }), nil
}

func (r *WorkOrderRepository) list(keep func(domain.WorkOrder) bool) []*domain.WorkOrder {
	var out []*domain.WorkOrder
	for _, o := range r.orders {
		if keep(o) {
			found := o
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (r *WorkOrderRepository) GenerateOrderNumber(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	return domain.FormatOrderNumber(r.seq), nil
}

func (r *WorkOrderRepository) Mutate(_ context.Context, id uuid.UUID, fn interfaces.MutateFunc) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}

	working := current
	log, err := fn(&working)
	if err != nil {
		return nil, err
	}

	r.orders[id] = working
	if log != nil {
		r.logs[id] = append(r.logs[id], *log)
	}

	updated := working
	return &updated, nil
}

func (r *WorkOrderRepository) GetStatusHistory(_ context.Context, orderID uuid.UUID) ([]*domain.WorkOrderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}

	out := make([]*domain.WorkOrderLog, 0, len(r.logs[orderID]))
	for i := range r.logs[orderID] {
		l := r.logs[orderID][i]
		out = append(out, &l)
	}
	return out, nil
}

func (r *WorkOrderRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	delete(r.logs, id)
	delete(r.orders, id)
	return nil
}
