package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/spendlens/internal/domain"
)

// SpendingAnalysis holds the totals and per-day rollups of one batch.
type SpendingAnalysis struct {
	TotalSpent        float64            `json:"total_spent"`
	TotalIncome       float64            `json:"total_income"`
	SavingsRate       float64            `json:"savings_rate"`
	DailySummary      map[string]float64 `json:"daily_summary"`
	CumulativeBalance map[string]float64 `json:"cumulative_balance"`
}

// SpendingAggregator computes totals, the savings rate and per-day rollups.
type SpendingAggregator struct{}

// NewSpendingAggregator creates the aggregation stage.
func NewSpendingAggregator() *SpendingAggregator {
	return &SpendingAggregator{}
}

// Aggregate runs the aggregation stage. The cumulative balance is the balance field of the
// last transaction on each date, taken as reported and not recomputed.
func (a *SpendingAggregator) Aggregate(txs []domain.Transaction) SpendingAnalysis {
	spent := decimal.Zero
	income := decimal.Zero
	daily := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		switch {
		case tx.IsExpense():
			spent = spent.Add(tx.Amount)
		case tx.IsIncome():
			income = income.Add(tx.Amount)
		}
		day := tx.DayKey()
		daily[day] = daily[day].Add(tx.Amount)
	}

	result := SpendingAnalysis{
		TotalSpent:        spent.Abs().InexactFloat64(),
		TotalIncome:       income.InexactFloat64(),
		DailySummary:      make(map[string]float64, len(daily)),
		CumulativeBalance: make(map[string]float64, len(daily)),
	}
	if !income.IsZero() {
		result.SavingsRate = income.Add(spent).Div(income).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	for day, net := range daily {
		result.DailySummary[day] = net.InexactFloat64()
	}

	sorted := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	for _, tx := range sorted {
		result.CumulativeBalance[tx.DayKey()] = tx.BalanceFloat()
	}
	return result
}
