package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"unknown priority", fmt.Errorf("policy lookup: %w", sla.ErrUnknownPriority), "UNKNOWN_PRIORITY", http.StatusBadRequest},
		{"invalid timestamp", fmt.Errorf("ticket t-1: %w", sla.ErrInvalidTimestamp), "INVALID_TIMESTAMP", http.StatusUnprocessableEntity},
		{"already recorded", fmt.Errorf("ticket t-1: %w", sla.ErrAlreadyRecorded), "ALREADY_RECORDED", http.StatusConflict},
		{"ticket not found", repository.ErrTicketNotFound, "NOT_FOUND", http.StatusNotFound},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"malformed uuid", fmt.Errorf("get ticket: %w", &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}), "NOT_FOUND", http.StatusNotFound},
		{"other postgres error", &pgconn.PgError{Code: "23514", Message: "check violation"}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"version conflict", repository.ErrVersionConflict, "CONFLICT", http.StatusConflict},
		{"fiber not found", fiber.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"fiber bad request", fiber.NewError(http.StatusRequestEntityTooLarge, "too big"), "BAD_REQUEST", http.StatusRequestEntityTooLarge},
		{"fiber unavailable", fiber.ErrServiceUnavailable, "INTERNAL_ERROR", http.StatusServiceUnavailable},
		{"anything else", errors.New("disk on fire"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	original := NewConflict("invalid status transition", map[string]any{"from": "OPEN"})
	wrapped := fmt.Errorf("update status: %w", original)

	got := ToDomainError(wrapped)
	assert.Same(t, original, got)
	assert.Equal(t, "OPEN", got.Details["from"])
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := ToDomainError(errors.New("password=hunter2"))
	assert.Equal(t, "internal server error", got.Message)
	assert.Nil(t, got.Details)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
	assert.Equal(t, "ticket not found", MapError(repository.ErrTicketNotFound).(*DomainError).Message)
}
