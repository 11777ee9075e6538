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

type contractRepository struct {
	db DB
}

func NewContractRepository(db DB) interfaces.ContractRepository {
	return &contractRepository{db: db}
}

// Create stores the contract and its SLA policy rows in one transaction.
func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO contracts (id, client_id, name, hourly_rate, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, query,
		contract.ID, contract.ClientID, contract.Name, contract.HourlyRate, contract.Active, contract.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert contract: %v", domain.ErrPersistence, err)
	}

	for i := range contract.Policies {
		p := &contract.Policies[i]
		p.ContractID = contract.ID
		policyQuery := `
			INSERT INTO sla_policies (contract_id, priority, first_response_minutes, on_site_minutes, resolution_minutes, penalty_percent)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.Exec(ctx, policyQuery,
			p.ContractID, string(p.Priority), p.FirstResponseMinutes, p.OnSiteMinutes, p.ResolutionMinutes, p.PenaltyPercent,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert SLA policy %s: %v", domain.ErrPersistence, p.Priority, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `
		SELECT id, client_id, name, hourly_rate, active, created_at
		FROM contracts
		WHERE id = $1
	`
	var c domain.Contract
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.ClientID, &c.Name, &c.HourlyRate, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contract %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load contract: %v", domain.ErrPersistence, err)
	}

	policyQuery := `
		SELECT contract_id, priority, first_response_minutes, on_site_minutes, resolution_minutes, penalty_percent
		FROM sla_policies
		WHERE contract_id = $1
		ORDER BY priority
	`
	rows, err := r.db.Query(ctx, policyQuery, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load SLA policies: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        domain.SLAPolicy
			priority string
		)
		if err := rows.Scan(&p.ContractID, &priority, &p.FirstResponseMinutes, &p.OnSiteMinutes,
			&p.ResolutionMinutes, &p.PenaltyPercent); err != nil {
			return nil, fmt.Errorf("%w: failed to scan SLA policy: %v", domain.ErrPersistence, err)
		}
		p.Priority = domain.Priority(priority)
		c.Policies = append(c.Policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return &c, nil
}
