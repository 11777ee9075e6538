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

const workOrderColumns = `
	id, number, client_id, technician_id, contract_id, category, priority, title, description,
	status, sub_status, site_latitude, site_longitude, scheduled_date, assigned_at,
	check_in_at, check_out_at, completed_at, work_report, invoice_id,
	sla_first_response_deadline, sla_on_site_deadline, sla_resolution_deadline,
	created_at, updated_at`

type workOrderRepository struct {
	db DB
}

func NewWorkOrderRepository(db DB) interfaces.WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, order *domain.WorkOrder, log *domain.WorkOrderLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO work_orders (` + workOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.Number, order.ClientID, order.TechnicianID, order.ContractID,
		string(order.Category), string(order.Priority), order.Title, order.Description,
		string(order.Status), subStatusArg(order.SubStatus), order.SiteLatitude, order.SiteLongitude,
		order.ScheduledDate, order.AssignedAt, order.CheckInAt, order.CheckOutAt, order.CompletedAt,
		order.WorkReport, order.InvoiceID,
		order.SLA.FirstResponse, order.SLA.OnSite, order.SLA.Resolution,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert work order: %v", domain.ErrPersistence, err)
	}

	if log != nil {
		if err := insertLog(ctx, tx, log); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *workOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.WorkOrder, error) {
	return findOne(ctx, r.db, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id)
}

func (r *workOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return findOne(ctx, r.db, `SELECT `+workOrderColumns+` FROM work_orders WHERE number = $1`, number)
}

func (r *workOrderRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.WorkOrder, error) {
	return r.list(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE client_id = $1 ORDER BY number`, clientID)
}

func (r *workOrderRepository) ListAll(ctx context.Context) ([]*domain.WorkOrder, error) {
	return r.list(ctx, `SELECT `+workOrderColumns+` FROM work_orders ORDER BY number`)
}

func (r *workOrderRepository) list(ctx context.Context, query string, args ...any) ([]*domain.WorkOrder, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list work orders: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var orders []*domain.WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan work order: %v", domain.ErrPersistence, err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return orders, nil
}

func (r *workOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('work_order_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("%w: failed to draw order number: %v", domain.ErrPersistence, err)
	}
	return domain.FormatOrderNumber(seq), nil
}

// Mutate locks the row with SELECT ... FOR UPDATE so concurrent writers on
// the same order queue behind each other until commit.
func (r *workOrderRepository) Mutate(ctx context.Context, id uuid.UUID, fn interfaces.MutateFunc) (*domain.WorkOrder, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	order, err := findOne(ctx, tx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	log, err := fn(order)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE work_orders
		SET technician_id = $2, contract_id = $3, status = $4, sub_status = $5,
		    scheduled_date = $6, assigned_at = $7, check_in_at = $8, check_out_at = $9,
		    completed_at = $10, work_report = $11, invoice_id = $12,
		    sla_first_response_deadline = $13, sla_on_site_deadline = $14,
		    sla_resolution_deadline = $15, updated_at = $16
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.TechnicianID, order.ContractID, string(order.Status), subStatusArg(order.SubStatus),
		order.ScheduledDate, order.AssignedAt, order.CheckInAt, order.CheckOutAt,
		order.CompletedAt, order.WorkReport, order.InvoiceID,
		order.SLA.FirstResponse, order.SLA.OnSite, order.SLA.Resolution, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update work order: %v", domain.ErrPersistence, err)
	}

	if log != nil {
		if err := insertLog(ctx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit: %v", domain.ErrPersistence, err)
	}
	return order, nil
}

func (r *workOrderRepository) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]*domain.WorkOrderLog, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM work_orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if !exists {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}

	query := `
		SELECT id, work_order_id, previous_status, new_status, note, latitude, longitude, changed_by, created_at
		FROM work_order_logs
		WHERE work_order_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query status history: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var logs []*domain.WorkOrderLog
	for rows.Next() {
		var (
			l        domain.WorkOrderLog
			previous *string
			next     string
		)
		if err := rows.Scan(&l.ID, &l.WorkOrderID, &previous, &next, &l.Note,
			&l.Latitude, &l.Longitude, &l.ChangedBy, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan status log: %v", domain.ErrPersistence, err)
		}
		if previous != nil {
			s := domain.Status(*previous)
			l.PreviousStatus = &s
		}
		l.NewStatus = domain.Status(next)
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return logs, nil
}

// Delete removes the order together with everything that references it.
func (r *workOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"work_order_logs", "work_order_materials", "work_order_quotations"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE work_order_id = $1`, id); err != nil {
			return fmt.Errorf("%w: failed to delete from %s: %v", domain.ErrPersistence, table, err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete work order: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

func insertLog(ctx context.Context, tx Tx, log *domain.WorkOrderLog) error {
	var previous *string
	if log.PreviousStatus != nil {
		s := string(*log.PreviousStatus)
		previous = &s
	}
	query := `
		INSERT INTO work_order_logs (id, work_order_id, previous_status, new_status, note, latitude, longitude, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Exec(ctx, query,
		log.ID, log.WorkOrderID, previous, string(log.NewStatus), log.Note,
		log.Latitude, log.Longitude, log.ChangedBy, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to log status: %v", domain.ErrPersistence, err)
	}
	return nil
}

func findOne(ctx context.Context, q querier, query string, arg any) (*domain.WorkOrder, error) {
	order, err := scanWorkOrder(q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load work order: %v", domain.ErrPersistence, err)
	}
	return order, nil
}

func scanWorkOrder(row Row) (*domain.WorkOrder, error) {
	var (
		o                           domain.WorkOrder
		category, priority, status string
		sub                         *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.TechnicianID, &o.ContractID, &category, &priority,
		&o.Title, &o.Description, &status, &sub, &o.SiteLatitude, &o.SiteLongitude,
		&o.ScheduledDate, &o.AssignedAt, &o.CheckInAt, &o.CheckOutAt, &o.CompletedAt,
		&o.WorkReport, &o.InvoiceID,
		&o.SLA.FirstResponse, &o.SLA.OnSite, &o.SLA.Resolution,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Category = domain.Category(category)
	o.Priority = domain.Priority(priority)
	o.Status = domain.Status(status)
	if sub != nil {
		s := domain.SubStatus(*sub)
		o.SubStatus = &s
	}
	return &o, nil
}

func subStatusArg(sub *domain.SubStatus) *string {
	if sub == nil {
		return nil
	}
	s := string(*sub)
	return &s
}
