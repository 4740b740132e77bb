package repository

import (
	"context"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// ForEachTicket walks every ticket matching filter in id order, batchSize at a
// time. It stops at the first error returned by fn or by the repository.
func ForEachTicket(ctx context.Context, repo TicketRepository, filter TicketFilter, batchSize int, fn func(*domain.Ticket) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	filter.Limit = batchSize
	filter.Offset = 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := repo.ListWithFilter(ctx, filter)
		if err != nil {
			return err
		}
		for i := range page {
			if err := fn(&page[i]); err != nil {
				return err
			}
		}
		if len(page) < batchSize {
			return nil
		}
		filter.AfterID = page[len(page)-1].ID
	}
}
