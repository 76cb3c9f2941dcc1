package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/spendlens/internal/domain"
)

func TestSpendingAggregator_Totals(t *testing.T) {
	aggregator := NewSpendingAggregator()
	txs := []domain.Transaction{
		tx(t, "2024-01-01", "Salary", "1000"),
		tx(t, "2024-01-01", "Rent", "-600"),
		tx(t, "2024-01-02", "Groceries", "-150.25"),
	}

	got := aggregator.Aggregate(txs)

	assert.Equal(t, 750.25, got.TotalSpent)
	assert.Equal(t, 1000.0, got.TotalIncome)
	assert.InDelta(t, 24.975, got.SavingsRate, 1e-9)
	assert.Equal(t, map[string]float64{"2024-01-01": 400, "2024-01-02": -150.25}, got.DailySummary)
}

func TestSpendingAggregator_SavingsRateZeroWithoutIncome(t *testing.T) {
	aggregator := NewSpendingAggregator()

	got := aggregator.Aggregate([]domain.Transaction{tx(t, "2024-01-01", "Netflix", "-15")})

	assert.Equal(t, 15.0, got.TotalSpent)
	assert.Equal(t, 0.0, got.TotalIncome)
	assert.Equal(t, 0.0, got.SavingsRate)
}

func TestSpendingAggregator_CumulativeBalanceTrustsSource(t *testing.T) {
	aggregator := NewSpendingAggregator()
	morning := withBalance(tx(t, "2024-01-02", "Coffee", "-5"), "500")
	evening := withBalance(tx(t, "2024-01-02", "Dinner", "-40"), "460")
	evening.Date = evening.Date.Add(20 * time.Hour)
	earlier := withBalance(tx(t, "2024-01-01", "Deposit", "100"), "9999")

	got := aggregator.Aggregate([]domain.Transaction{evening, earlier, morning})

	assert.Equal(t, map[string]float64{"2024-01-01": 9999, "2024-01-02": 460}, got.CumulativeBalance)
}

func TestSpendingAggregator_SameTimestampKeepsInputOrder(t *testing.T) {
	aggregator := NewSpendingAggregator()
	first := withBalance(tx(t, "2024-01-02", "a", "-5"), "10")
	second := withBalance(tx(t, "2024-01-02", "b", "-5"), "20")

	got := aggregator.Aggregate([]domain.Transaction{first, second})

	assert.Equal(t, 20.0, got.CumulativeBalance["2024-01-02"])
}

func TestSpendingAggregator_Empty(t *testing.T) {
	got := NewSpendingAggregator().Aggregate(nil)

	assert.Equal(t, 0.0, got.TotalSpent)
	assert.Equal(t, 0.0, got.SavingsRate)
	assert.Empty(t, got.DailySummary)
	assert.Empty(t, got.CumulativeBalance)
}
