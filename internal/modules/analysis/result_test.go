package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spendlens/internal/domain"
)

func TestFormatISO(t *testing.T) {
	naive := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T09:30:00", formatISO(naive))

	athens := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("EET", 2*60*60))
	assert.Equal(t, "2024-03-01T09:30:00+02:00", formatISO(athens))

	west := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("", -5*60*60-30*60))
	assert.Equal(t, "2024-03-01T09:30:00-05:30", formatISO(west))
}

func TestSummarizer_KeepsInputOffset(t *testing.T) {
	raw := rawRecord("2024-01-01", "Salary", 1000, 1000)
	raw["date"] = "2024-01-01T08:00:00+02:00"
	parsed, err := ParseTransaction(raw)
	require.NoError(t, err)

	got := NewSummarizer().Summarize([]domain.Transaction{parsed, tx(t, "2024-01-05", "Rent", "-400")})

	assert.Equal(t, "2024-01-01T08:00:00+02:00", got.StartDate)
	assert.Equal(t, "2024-01-05T00:00:00", got.EndDate)
}
