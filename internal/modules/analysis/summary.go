package analysis

import (
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/spendlens/internal/domain"
)

// Month-over-month trend directions.
const (
	DirectionUp      = "up"
	DirectionDown    = "down"
	DirectionNeutral = "neutral"
)

// SeriesSummary describes one monthly series (income, expenses or savings).
type SeriesSummary struct {
	Total  float64 `json:"total"`
	Trend  string  `json:"trend"`
	Change float64 `json:"change"`
}

// MonthSummary is one row of the monthly summary table.
type MonthSummary struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Savings  float64 `json:"savings"`
}

// Summary is the result of the summarize pipeline.
type Summary struct {
	Income            SeriesSummary           `json:"income"`
	Expenses          SeriesSummary           `json:"expenses"`
	Savings           SeriesSummary           `json:"savings"`
	TotalTransactions int                     `json:"total_transactions"`
	ExpenseCount      int                     `json:"expense_count"`
	IncomeCount       int                     `json:"income_count"`
	AvgExpense        float64                 `json:"avg_expense"`
	AvgIncome         float64                 `json:"avg_income"`
	StartDate         string                  `json:"start_date"`
	EndDate           string                  `json:"end_date"`
	LargestExpense    float64                 `json:"largest_expense"`
	LargestIncome     float64                 `json:"largest_income"`
	SavingsRate       float64                 `json:"savings_rate"`
	MonthlySummary    map[string]MonthSummary `json:"monthly_summary"`
}

// summaryTotals is the output of the totals step of the summarize pipeline.
type summaryTotals struct {
	spent, income  decimal.Decimal
	expenseCount   int
	incomeCount    int
	largestExpense decimal.Decimal
	largestIncome  decimal.Decimal
}

// monthlySeries holds the monthly table over the union of months plus the per-side series
// used for trends. incomeTrend and expenseTrend only cover months where that side occurs.
type monthlySeries struct {
	months   []string
	income   []float64
	expenses []float64
	savings  []float64

	incomeTrend  []float64
	expenseTrend []float64
}

// Summarizer builds the monthly summary of a batch.
type Summarizer struct{}

// NewSummarizer creates the summarize pipeline stages.
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize runs every summary step in order.
func (s *Summarizer) Summarize(txs []domain.Transaction) Summary {
	totals := s.totals(txs)
	monthly := s.monthly(txs)
	summary := s.build(txs, totals, monthly)
	s.trends(&summary, monthly)
	return summary
}

func (s *Summarizer) totals(txs []domain.Transaction) summaryTotals {
	var t summaryTotals
	for _, tx := range txs {
		switch {
		case tx.IsExpense():
			t.spent = t.spent.Add(tx.Amount)
			if t.expenseCount == 0 || tx.Amount.LessThan(t.largestExpense) {
				t.largestExpense = tx.Amount
			}
			t.expenseCount++
		case tx.IsIncome():
			t.income = t.income.Add(tx.Amount)
			if t.incomeCount == 0 || tx.Amount.GreaterThan(t.largestIncome) {
				t.largestIncome = tx.Amount
			}
			t.incomeCount++
		}
	}
	return t
}

// monthly groups amounts by calendar month. Months are sorted ascending. A month with only
// income or only expenses reports zero for the missing side and zero savings.
func (s *Summarizer) monthly(txs []domain.Transaction) monthlySeries {
	income := make(map[string]decimal.Decimal)
	expenses := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		month := tx.MonthKey()
		switch {
		case tx.IsExpense():
			expenses[month] = expenses[month].Add(tx.Amount.Abs())
		case tx.IsIncome():
			income[month] = income[month].Add(tx.Amount)
		}
	}

	var series monthlySeries
	seen := make(map[string]bool, len(income)+len(expenses))
	for _, m := range []map[string]decimal.Decimal{income, expenses} {
		for month := range m {
			if !seen[month] {
				seen[month] = true
				series.months = append(series.months, month)
			}
		}
	}
	sort.Strings(series.months)

	for _, month := range series.months {
		in, hasIncome := income[month]
		out, hasExpenses := expenses[month]
		series.income = append(series.income, in.InexactFloat64())
		series.expenses = append(series.expenses, out.InexactFloat64())

		savings := 0.0
		if hasIncome && hasExpenses {
			savings = in.Sub(out).InexactFloat64()
		}
		series.savings = append(series.savings, savings)

		if hasIncome {
			series.incomeTrend = append(series.incomeTrend, in.InexactFloat64())
		}
		if hasExpenses {
			series.expenseTrend = append(series.expenseTrend, out.InexactFloat64())
		}
	}
	return series
}

func (s *Summarizer) build(txs []domain.Transaction, t summaryTotals, monthly monthlySeries) Summary {
	summary := Summary{
		Income:            SeriesSummary{Total: t.income.InexactFloat64()},
		Expenses:          SeriesSummary{Total: t.spent.Abs().InexactFloat64()},
		Savings:           SeriesSummary{Total: t.income.Add(t.spent).InexactFloat64()},
		TotalTransactions: len(txs),
		ExpenseCount:      t.expenseCount,
		IncomeCount:       t.incomeCount,
		LargestExpense:    t.largestExpense.InexactFloat64(),
		LargestIncome:     t.largestIncome.InexactFloat64(),
		MonthlySummary:    make(map[string]MonthSummary, len(monthly.months)),
	}
	if t.expenseCount > 0 {
		summary.AvgExpense = t.spent.Div(decimal.NewFromInt(int64(t.expenseCount))).Abs().InexactFloat64()
	}
	if t.incomeCount > 0 {
		summary.AvgIncome = t.income.Div(decimal.NewFromInt(int64(t.incomeCount))).InexactFloat64()
	}
	if !t.income.IsZero() {
		summary.SavingsRate = t.income.Add(t.spent).Div(t.income).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	if len(txs) > 0 {
		start, end := txs[0].Date, txs[0].Date
		for _, tx := range txs[1:] {
			if tx.Date.Before(start) {
				start = tx.Date
			}
			if tx.Date.After(end) {
				end = tx.Date
			}
		}
		summary.StartDate = formatISO(start)
		summary.EndDate = formatISO(end)
	}

	for i, month := range monthly.months {
		summary.MonthlySummary[month] = MonthSummary{
			Income:   monthly.income[i],
			Expenses: monthly.expenses[i],
			Savings:  monthly.savings[i],
		}
	}
	return summary
}

func (s *Summarizer) trends(summary *Summary, monthly monthlySeries) {
	summary.Income.Trend, summary.Income.Change = seriesDirection(monthly.incomeTrend), seriesChange(monthly.incomeTrend)
	summary.Expenses.Trend, summary.Expenses.Change = seriesDirection(monthly.expenseTrend), seriesChange(monthly.expenseTrend)
	summary.Savings.Trend, summary.Savings.Change = seriesDirection(monthly.savings), seriesChange(monthly.savings)
}

// seriesDirection compares the mean of the last two months with the mean of the months
// before them.
func seriesDirection(values []float64) string {
	if len(values) <= 2 {
		return DirectionNeutral
	}
	recent := stat.Mean(values[len(values)-2:], nil)
	earlier := stat.Mean(values[:len(values)-2], nil)
	switch {
	case recent > earlier:
		return DirectionUp
	case recent < earlier:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

// seriesChange is the percentage change from the highest month to the mean of the last two.
func seriesChange(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	highest := values[0]
	for _, v := range values[1:] {
		if v > highest {
			highest = v
		}
	}
	if highest == 0 {
		return 0
	}
	return (stat.Mean(values[len(values)-2:], nil) - highest) / highest * 100
}
