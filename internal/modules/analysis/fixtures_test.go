package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spendlens/internal/domain"
	"github.com/aristath/spendlens/internal/events"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func rawRecord(date, description string, amount, balance any) domain.RawRecord {
	return domain.RawRecord{
		"_id":         "tx-" + date,
		"date":        date,
		"description": description,
		"amount":      amount,
		"balance":     balance,
		"type":        "debit",
		"userId":      "u1",
		"createdAt":   "2024-01-01T00:00:00",
		"updatedAt":   "2024-01-01T00:00:00",
	}
}

func tx(t *testing.T, date, description string, amount string) domain.Transaction {
	t.Helper()
	d, err := time.Parse(domain.DayLayout, date)
	require.NoError(t, err)
	return domain.Transaction{
		Amount:      decimal.RequireFromString(amount),
		Balance:     decimal.NewFromInt(1000),
		Date:        d,
		Description: description,
		Type:        "debit",
		UserID:      "u1",
	}
}

func withBalance(t domain.Transaction, balance string) domain.Transaction {
	t.Balance = decimal.RequireFromString(balance)
	return t
}

// mockSink records every progress event it receives
type mockSink struct {
	mu     sync.Mutex
	events []events.ProgressEvent
}

func (m *mockSink) Report(_ context.Context, event events.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockSink) Events() []events.ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.ProgressEvent(nil), m.events...)
}

func (m *mockSink) Progress() []float64 {
	var values []float64
	for _, e := range m.Events() {
		values = append(values, e.Progress)
	}
	return values
}
