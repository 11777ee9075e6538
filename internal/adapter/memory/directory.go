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

type ContractRepository struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]domain.Contract
}

func NewContractRepository() *ContractRepository {
	return &ContractRepository{contracts: make(map[uuid.UUID]domain.Contract)}
}

var _ interfaces.ContractRepository = (*ContractRepository)(nil)

func (r *ContractRepository) Create(_ context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *contract
	c.Policies = append([]domain.SLAPolicy(nil), contract.Policies...)
	r.contracts[c.ID] = c
	return nil
}

func (r *ContractRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contracts[id]
	if !ok {
		return nil, fmt.Errorf("contract %s: %w", id, domain.ErrNotFound)
	}
	c.Policies = append([]domain.SLAPolicy(nil), c.Policies...)
	return &c, nil
}

type UserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]domain.User)}
}

var _ interfaces.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

// ListByRoles returns active users holding any of roles, ordered by name.
func (r *UserRepository) ListByRoles(_ context.Context, roles ...domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		want[role] = true
	}

	var out []*domain.User
	for _, u := range r.users {
		if u.Active && want[u.Role] {
			found := u
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
