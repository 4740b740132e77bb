package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	UpdatedFrom *time.Time
	// AfterID enables keyset paging ordered by id.
	AfterID string
	Limit   int
	Offset  int
}

// TicketRepository encapsulates ticket persistence.
//
// Update is optimistic: it succeeds only when ticket.Version matches the stored
// version, then increments ticket.Version. Otherwise it returns ErrVersionConflict.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

const ticketColumns = `id, external_key, title, status, priority, created_at, updated_at, closed_at,
               response_deadline, resolution_deadline, first_responded_at, resolved_at, version`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, status, priority, created_at, updated_at,
            response_deadline, resolution_deadline, first_responded_at, resolved_at, version)
        VALUES ($1,$2,$3,$4,$5,$5,$6,$7,$8,$9,1)
        RETURNING id, updated_at, version`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedAt,
		ticket.ResponseDeadline,
		ticket.ResolutionDeadline,
		ticket.FirstRespondedAt,
		ticket.ResolvedAt,
	).Scan(&ticket.ID, &ticket.UpdatedAt, &ticket.Version)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, status=$2, priority=$3, closed_at=$4,
            response_deadline=$5, resolution_deadline=$6, first_responded_at=$7, resolved_at=$8,
            updated_at=NOW(), version=version+1
        WHERE id=$9 AND version=$10
        RETURNING updated_at, version`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Status,
		ticket.Priority,
		ticket.ClosedAt,
		ticket.ResponseDeadline,
		ticket.ResolutionDeadline,
		ticket.FirstRespondedAt,
		ticket.ResolvedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.UpdatedAt, &ticket.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, ticket.ID); getErr != nil {
			return getErr
		}
		return ErrVersionConflict
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	// ids are UUIDs; anything else cannot match and would fail the cast.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTicketNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrTicketNotFound
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.AfterID != "" {
		args = append(args, filter.AfterID)
		clauses = append(clauses, fmt.Sprintf("id::text > $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY id::text ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.Title,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
			&ticket.ResponseDeadline,
			&ticket.ResolutionDeadline,
			&ticket.FirstRespondedAt,
			&ticket.ResolvedAt,
			&ticket.Version,
		); err != nil {
			return nil, err
		}
		normalizeTimes(&ticket)
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// normalizeTimes keeps every instant in UTC regardless of the session time zone.
func normalizeTimes(t *domain.Ticket) {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.ResponseDeadline = t.ResponseDeadline.UTC()
	t.ResolutionDeadline = t.ResolutionDeadline.UTC()
	for _, ts := range []**time.Time{&t.ClosedAt, &t.FirstRespondedAt, &t.ResolvedAt} {
		if *ts != nil {
			utc := (**ts).UTC()
			*ts = &utc
		}
	}
}
