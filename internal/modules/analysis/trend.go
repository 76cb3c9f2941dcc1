package analysis

import (
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/spendlens/internal/domain"
)

// Trend labels.
const (
	TrendIncreasing    = "increasing"
	TrendDecreasing    = "decreasing"
	TrendNotEnoughData = "not enough data"
)

// SpendingTrends is the trend prediction stage output. Numeric fields are nil when there is
// not enough data to fit a line.
type SpendingTrends struct {
	Trend                 string   `json:"trend"`
	TrendSlope            *float64 `json:"trend_slope,omitempty"`
	EstimatedMonthlySpend *float64 `json:"estimated_monthly_spend,omitempty"`
}

// TrendPredictor fits a straight line through amounts over time.
type TrendPredictor struct{}

// NewTrendPredictor creates the trend prediction stage.
func NewTrendPredictor() *TrendPredictor {
	return &TrendPredictor{}
}

// Predict fits amount against whole days since the earliest transaction. A slope of exactly
// zero is reported as decreasing.
func (p *TrendPredictor) Predict(txs []domain.Transaction) SpendingTrends {
	if len(txs) < 2 {
		return SpendingTrends{Trend: TrendNotEnoughData}
	}

	earliest := calendarDay(txs[0].Date)
	for _, tx := range txs[1:] {
		if d := calendarDay(tx.Date); d.Before(earliest) {
			earliest = d
		}
	}

	xs := make([]float64, len(txs))
	ys := make([]float64, len(txs))
	spent := decimal.Zero
	months := make(map[string]struct{})
	sameX := true
	for i, tx := range txs {
		xs[i] = float64(daysBetween(earliest, calendarDay(tx.Date)))
		ys[i] = tx.AmountFloat()
		if xs[i] != xs[0] {
			sameX = false
		}
		if tx.IsExpense() {
			spent = spent.Add(tx.Amount)
		}
		months[tx.MonthKey()] = struct{}{}
	}

	var slope float64
	if !sameX {
		_, slope = stat.LinearRegression(xs, ys, nil, false)
	}

	trend := TrendDecreasing
	if slope > 0 {
		trend = TrendIncreasing
	}

	divisor := int64(len(months))
	if divisor < 1 {
		divisor = 1
	}
	monthly := spent.Abs().Div(decimal.NewFromInt(divisor)).InexactFloat64()

	return SpendingTrends{
		Trend:                 trend,
		TrendSlope:            &slope,
		EstimatedMonthlySpend: &monthly,
	}
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
