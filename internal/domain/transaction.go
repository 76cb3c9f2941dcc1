// Package domain contains the value types shared by the analysis pipeline and its transports.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one loosely typed transaction record as decoded from a JSON request body.
type RawRecord = map[string]any

// Transaction is a validated financial movement. Values are never mutated after validation;
// stages receive copies or read-only slices.
type Transaction struct {
	ID          string          `json:"_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`  // negative = expense, positive = income
	Balance     decimal.Decimal `json:"balance"` // account balance snapshot, trusted as reported
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	UserID      string          `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// AmountFloat returns the amount as float64 for statistical stages.
func (t Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// BalanceFloat returns the balance as float64.
func (t Transaction) BalanceFloat() float64 {
	return t.Balance.InexactFloat64()
}

// IsExpense reports whether the transaction moves money out of the account.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether the transaction moves money into the account.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// DayKey is the calendar date of the transaction in ISO form (2006-01-02).
func (t Transaction) DayKey() string {
	return t.Date.Format(DayLayout)
}

// MonthKey is the calendar month of the transaction (2006-01).
func (t Transaction) MonthKey() string {
	return t.Date.Format(MonthLayout)
}

// Layouts used for date keyed aggregations.
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)
