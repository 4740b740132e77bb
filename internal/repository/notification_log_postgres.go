package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-sla/internal/sla"
)

type postgresNotificationLog struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationLog persists sent notifications in sla_breach_notifications.
func NewPostgresNotificationLog(pool *pgxpool.Pool) NotificationLog {
	return &postgresNotificationLog{pool: pool}
}

func (l *postgresNotificationLog) HasBeenNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM sla_breach_notifications WHERE ticket_id=$1 AND checkpoint=$2)`
	var exists bool
	if err := l.pool.QueryRow(ctx, query, ticketID, string(checkpoint)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (l *postgresNotificationLog) MarkNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) error {
	const query = `
        INSERT INTO sla_breach_notifications (ticket_id, checkpoint)
        VALUES ($1,$2)
        ON CONFLICT (ticket_id, checkpoint) DO NOTHING`
	_, err := l.pool.Exec(ctx, query, ticketID, string(checkpoint))
	return err
}
