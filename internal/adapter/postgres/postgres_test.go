package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/postgres/migrations"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_Sorted(t *testing.T) {
	files, err := migrationFiles(migrations.Files)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}

func openTestDB(t *testing.T) DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	ctx := context.Background()

	db, err := ConnectDSN(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Migrate(ctx, db))
	// second run is a no-op
	require.NoError(t, Migrate(ctx, db))
	return db
}

func seedUser(t *testing.T, db DB, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: string(role) + "-" + uuid.NewString()[:8], Role: role, Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestWorkOrderRepository_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewWorkOrderRepository(db)
	client := seedUser(t, db, domain.RoleClient)
	tech := seedUser(t, db, domain.RoleTechnician)

	contract := &domain.Contract{
		ID: uuid.New(), ClientID: client.ID, Name: "Mantenimiento", Active: true, CreatedAt: time.Now().UTC(),
		Policies: []domain.SLAPolicy{{Priority: domain.PriorityEmergency, FirstResponseMinutes: 15, OnSiteMinutes: 60, ResolutionMinutes: 240}},
	}
	contracts := NewContractRepository(db)
	require.NoError(t, contracts.Create(ctx, contract))
	loaded, err := contracts.FindByID(ctx, contract.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.PolicyFor(domain.PriorityEmergency))
	assert.Nil(t, loaded.PolicyFor(domain.PriorityNormal))

	now := time.Now().UTC().Truncate(time.Second)
	order, err := domain.NewWorkOrder(client.ID, domain.CategoryHVAC, domain.PriorityEmergency, "Chiller", "", now)
	require.NoError(t, err)
	order.ContractID = &contract.ID
	order.ApplySLA(loaded.PolicyFor(order.Priority))
	order.Number, err = repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order, order.CreationLog(client.ID)))

	found, err := repo.FindByNumber(ctx, order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.NotNil(t, found.SLA.OnSite)
	assert.True(t, found.SLA.OnSite.Equal(now.Add(60*time.Minute)))

	updated, err := repo.Mutate(ctx, order.ID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		return o.TransitionTo(domain.StatusScheduled, domain.RoleManager, uuid.New(), domain.TransitionData{
			TechnicianID: &tech.ID, ScheduledDate: &now,
		}, now)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, updated.Status)

	_, err = repo.Mutate(ctx, order.ID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
		return o.TransitionTo(domain.StatusClosed, domain.RoleAdmin, uuid.New(), domain.TransitionData{}, now)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].PreviousStatus)
	require.NotNil(t, history[1].PreviousStatus)
	assert.Equal(t, domain.StatusRequested, *history[1].PreviousStatus)

	listed, err := repo.ListByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.Delete(ctx, order.ID))
	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, order.ID), domain.ErrNotFound)
}

func TestWorkOrderRepository_MutateSerializes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewWorkOrderRepository(db)
	client := seedUser(t, db, domain.RoleClient)

	order, err := domain.NewWorkOrder(client.ID, domain.CategoryPlumbing, domain.PriorityNormal, "Fuga", "", time.Now().UTC())
	require.NoError(t, err)
	order.Number, err = repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order, order.CreationLog(client.ID)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, order.ID, func(o *domain.WorkOrder) (*domain.WorkOrderLog, error) {
				return o.TransitionTo(domain.StatusCancelled, domain.RoleClient, client.ID, domain.TransitionData{}, time.Now().UTC())
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUserRepository_ListByRoles(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	admin := seedUser(t, db, domain.RoleAdmin)
	seedUser(t, db, domain.RoleFinance)

	got, err := users.ListByRoles(ctx, domain.RoleAdmin, domain.RoleManager)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, u := range got {
		assert.Contains(t, []domain.Role{domain.RoleAdmin, domain.RoleManager}, u.Role)
		ids = append(ids, u.ID)
	}
	assert.Contains(t, ids, admin.ID)

	_, err = users.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
