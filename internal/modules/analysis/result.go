package analysis

import (
	"errors"
	"fmt"
	"time"
)

// ISO-8601 date-time forms used in result payloads. Times read without an offset are kept
// in UTC and printed without one; times that carried an offset print it back.
const (
	isoDateTime       = "2006-01-02T15:04:05"
	isoDateTimeOffset = "2006-01-02T15:04:05-07:00"
)

func formatISO(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(isoDateTime)
	}
	return t.Format(isoDateTimeOffset)
}

// AnalysisResult merges the output of every analysis stage. The category totals and
// percentages sit at the top level of the payload. It is built fresh per run and never
// mutated after it is returned.
type AnalysisResult struct {
	CategoryBreakdown
	Anomalies        []Anomaly        `json:"anomalies"`
	SpendingAnalysis SpendingAnalysis `json:"spending_analysis"`
	SpendingTrends   SpendingTrends   `json:"spending_trends"`
}

var (
	// ErrNoTransactions is returned when the input batch is empty.
	ErrNoTransactions = errors.New("No transactions provided")
	// ErrNoValidTransactions is returned when every record in the batch was rejected.
	ErrNoValidTransactions = errors.New("No valid transactions provided")
)

// IsEmptyBatch reports whether err means there was nothing to analyze.
func IsEmptyBatch(err error) bool {
	return errors.Is(err, ErrNoTransactions) || errors.Is(err, ErrNoValidTransactions)
}

// StageError is a failure inside one pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
