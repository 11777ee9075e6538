package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) interfaces.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Name, string(user.Role), user.Active, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to create user: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, role, active, created_at FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load user: %v", domain.ErrPersistence, err)
	}
	return user, nil
}

// ListByRoles returns active users holding any of roles, ordered by name.
func (r *userRepository) ListByRoles(ctx context.Context, roles ...domain.Role) ([]*domain.User, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	query := `
		SELECT id, name, role, active, created_at
		FROM users
		WHERE active AND role = ANY($1)
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan user: %v", domain.ErrPersistence, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return users, nil
}

func scanUser(row Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &role, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
