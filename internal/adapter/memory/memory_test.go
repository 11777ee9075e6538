package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(t *testing.T, repo *WorkOrderRepository) *domain.WorkOrder {
	t.Helper()
	ctx := context.Background()

	o, err := domain.NewWorkOrder(uuid.New(), domain.CategoryElectrical, domain.PriorityNormal, "Tablero", "", time.Now())
	require.NoError(t, err)
	o.Number, err = repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, o, o.CreationLog(o.ClientID)))
	return o
}

func TestWorkOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkOrderRepository()
	o := seedOrder(t, repo)

	assert.Equal(t, "WO-00000001", o.Number)

	byID, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, byID.Number)

	byNumber, err := repo.FindByNumber(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Create(ctx, o, nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	history, err := repo.GetStatusHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
}

func TestWorkOrderRepository_MutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkOrderRepository()
	o := seedOrder(t, repo)

	_, err := repo.Mutate(ctx, o.ID, func(w *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		w.Status = domain.StatusCancelled
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequested, got.Status)

	history, err := repo.GetStatusHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestWorkOrderRepository_MutateSerializes(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkOrderRepository()
	o := seedOrder(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Mutate(ctx, o.ID, func(w *domain.WorkOrder) (*domain.WorkOrderLog, error) {
				w.WorkReport += "x"
				return &domain.WorkOrderLog{ID: uuid.New(), WorkOrderID: w.ID, NewStatus: w.Status}, nil
			})
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.WorkReport, 50)

	history, err := repo.GetStatusHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 51)
}

func TestWorkOrderRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkOrderRepository()
	o := seedOrder(t, repo)

	require.NoError(t, repo.Delete(ctx, o.ID))
	_, err := repo.GetStatusHistory(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, o.ID), domain.ErrNotFound)
}

func TestUserRepository_ListByRoles(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	for _, u := range []domain.User{
		{ID: uuid.New(), Name: "Ana", Role: domain.RoleAdmin, Active: true},
		{ID: uuid.New(), Name: "Beto", Role: domain.RoleManager, Active: true},
		{ID: uuid.New(), Name: "Caro", Role: domain.RoleManager, Active: false},
		{ID: uuid.New(), Name: "Dani", Role: domain.RoleTechnician, Active: true},
	} {
		u := u
		require.NoError(t, repo.Create(ctx, &u))
	}

	staff, err := repo.ListByRoles(ctx, domain.RoleAdmin, domain.RoleManager)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "Ana", staff[0].Name)
	assert.Equal(t, "Beto", staff[1].Name)
}

func TestContractRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewContractRepository()
	c := &domain.Contract{ID: uuid.New(), Policies: []domain.SLAPolicy{{Priority: domain.PriorityUrgent, ResolutionMinutes: 60}}}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PolicyFor(domain.PriorityUrgent))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCounterStore(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore()

	n, err := s.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = s.Incr(ctx, "k")
	assert.Equal(t, int64(2), n)

	got, _ := s.Get(ctx, "k")
	assert.Equal(t, int64(2), got)

	require.NoError(t, s.Reset(ctx, "k"))
	got, _ = s.Get(ctx, "k")
	assert.Zero(t, got)

	other := NewCounterStore()
	got, _ = other.Get(ctx, "k")
	assert.Zero(t, got)
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, o.Send(ctx, a, "t1", "m1", "work_order", "r"))
	require.NoError(t, o.Send(ctx, b, "t2", "m2", "work_order", "r"))
	require.NoError(t, o.Send(ctx, a, "t3", "m3", "work_order", "r"))

	got := o.Messages(a)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].Title)
	assert.Equal(t, "t3", got[1].Title)

	for i := 0; i < outboxLimit; i++ {
		_ = o.Send(ctx, b, "t", "m", "work_order", "")
	}
	assert.Equal(t, outboxLimit, o.Len())
	assert.Empty(t, o.Messages(a))
}
