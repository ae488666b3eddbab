package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatdesk/support-service/internal/domain"
)

// TicketFilter captures admin listing parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDWithCustomer(ctx context.Context, id string) (*domain.Ticket, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Touch(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, ticket *domain.Ticket) error
	AnalyticsSummary(ctx context.Context) (*domain.AnalyticsSummary, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, subject, status, priority)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.Subject,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, customer_id, subject, status, priority, admin_id, created_at, updated_at, resolved_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AdminID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByIDWithCustomer(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT t.id, t.customer_id, t.subject, t.status, t.priority, t.admin_id,
               t.created_at, t.updated_at, t.resolved_at,
               c.id, c.name, c.email, c.session_id, c.created_at, c.updated_at
        FROM tickets t
        JOIN customers c ON c.id = t.customer_id
        WHERE t.id=$1`
	var ticket domain.Ticket
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AdminID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.SessionID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Customer = &customer
	return &ticket, nil
}

func (r *ticketRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, customer_id, subject, status, priority, admin_id, created_at, updated_at, resolved_at
        FROM tickets WHERE customer_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT t.id, t.customer_id, t.subject, t.status, t.priority, t.admin_id,
                    t.created_at, t.updated_at, t.resolved_at,
                    c.id, c.name, c.email, c.session_id, c.created_at, c.updated_at
             FROM tickets t
             JOIN customers c ON c.id = t.customer_id`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.subject) LIKE %s OR LOWER(c.name) LIKE %s OR LOWER(COALESCE(c.email,'')) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var customer domain.Customer
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CustomerID,
			&ticket.Subject,
			&ticket.Status,
			&ticket.Priority,
			&ticket.AdminID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
			&customer.ID,
			&customer.Name,
			&customer.Email,
			&customer.SessionID,
			&customer.CreatedAt,
			&customer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.Customer = &customer
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// Touch refreshes updated_at, used when a message lands on the ticket.
func (r *ticketRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE tickets SET updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, admin_id=$2, resolved_at=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.AdminID,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) AnalyticsSummary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	const query = `
        SELECT total_tickets, pending_tickets, resolved_tickets, closed_tickets, avg_resolution_seconds
        FROM analytics_summary`
	var summary domain.AnalyticsSummary
	if err := r.pool.QueryRow(ctx, query).Scan(
		&summary.TotalTickets,
		&summary.PendingTickets,
		&summary.ResolvedTickets,
		&summary.ClosedTickets,
		&summary.AvgResolutionSeconds,
	); err != nil {
		return nil, err
	}
	return &summary, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CustomerID,
			&ticket.Subject,
			&ticket.Status,
			&ticket.Priority,
			&ticket.AdminID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
