package persistence

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"001_tickets.sql",
		"002_ticket_history.sql",
		"003_sla_breach_notifications.sql",
	}, names)
}

// Recompute may leave the response deadline after the resolution deadline, so
// the table only ties each deadline and checkpoint to created_at.
func TestTicketConstraints(t *testing.T) {
	raw, err := migrationFiles.ReadFile("migrations/001_tickets.sql")
	require.NoError(t, err)

	checks := regexp.MustCompile(`CHECK \((.+)\)`).FindAllStringSubmatch(string(raw), -1)
	var got []string
	for _, m := range checks {
		got = append(got, strings.TrimSpace(m[1]))
	}
	assert.ElementsMatch(t, []string{
		"priority IN ('HIGH', 'MEDIUM', 'LOW')",
		"response_deadline > created_at",
		"resolution_deadline > created_at",
		"first_responded_at IS NULL OR first_responded_at >= created_at",
		"resolved_at IS NULL OR resolved_at >= created_at",
	}, got)
	assert.NotContains(t, string(raw), "resolution_deadline >= response_deadline")
}
