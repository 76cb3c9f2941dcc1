package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spendlens/internal/domain"
)

func TestTrendPredictor_NotEnoughData(t *testing.T) {
	predictor := NewTrendPredictor()

	got := predictor.Predict([]domain.Transaction{tx(t, "2024-01-01", "a", "-10")})

	assert.Equal(t, TrendNotEnoughData, got.Trend)
	assert.Nil(t, got.TrendSlope)
	assert.Nil(t, got.EstimatedMonthlySpend)
}

func TestTrendPredictor_Slope(t *testing.T) {
	tests := []struct {
		name          string
		amounts       []string
		expectedTrend string
		expectedSlope float64
	}{
		{"increasing", []string{"-30", "-20", "-10"}, TrendIncreasing, 10},
		{"decreasing", []string{"-10", "-20", "-30"}, TrendDecreasing, -10},
		{"flat counts as decreasing", []string{"-10", "-10", "-10"}, TrendDecreasing, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []domain.Transaction{
				tx(t, "2024-01-01", "a", tt.amounts[0]),
				tx(t, "2024-01-02", "b", tt.amounts[1]),
				tx(t, "2024-01-03", "c", tt.amounts[2]),
			}

			got := NewTrendPredictor().Predict(txs)

			assert.Equal(t, tt.expectedTrend, got.Trend)
			require.NotNil(t, got.TrendSlope)
			assert.InDelta(t, tt.expectedSlope, *got.TrendSlope, 1e-9)
		})
	}
}

func TestTrendPredictor_SameDaySlopeIsZero(t *testing.T) {
	a := tx(t, "2024-01-05", "a", "-10")
	b := tx(t, "2024-01-05", "b", "-90")
	b.Date = b.Date.Add(12 * time.Hour)

	got := NewTrendPredictor().Predict([]domain.Transaction{a, b})

	assert.Equal(t, TrendDecreasing, got.Trend)
	require.NotNil(t, got.TrendSlope)
	assert.Equal(t, 0.0, *got.TrendSlope)
}

func TestTrendPredictor_UsesEarliestDateRegardlessOfOrder(t *testing.T) {
	txs := []domain.Transaction{
		tx(t, "2024-01-03", "c", "-10"),
		tx(t, "2024-01-01", "a", "-30"),
		tx(t, "2024-01-02", "b", "-20"),
	}

	got := NewTrendPredictor().Predict(txs)

	assert.Equal(t, TrendIncreasing, got.Trend)
	assert.InDelta(t, 10.0, *got.TrendSlope, 1e-9)
}

func TestTrendPredictor_EstimatedMonthlySpend(t *testing.T) {
	txs := []domain.Transaction{
		tx(t, "2024-01-10", "a", "-100"),
		tx(t, "2024-01-20", "b", "500"),
		tx(t, "2024-02-10", "c", "-200"),
		tx(t, "2024-03-10", "d", "-300"),
	}

	got := NewTrendPredictor().Predict(txs)

	require.NotNil(t, got.EstimatedMonthlySpend)
	assert.InDelta(t, 200.0, *got.EstimatedMonthlySpend, 1e-9)
}
