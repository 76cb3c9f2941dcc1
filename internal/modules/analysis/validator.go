package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/spendlens/internal/domain"
)

// requiredFields lists the keys every raw record must carry, in the order they are checked.
var requiredFields = []string{
	"date",
	"description",
	"amount",
	"balance",
	"type",
	"userId",
	"createdAt",
	"updatedAt",
}

// timestampLayouts are the ISO-8601 forms accepted for date fields. Layouts without an
// offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// RejectionError explains why a raw record could not become a Transaction
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func reject(field, format string, args ...any) error {
	return &RejectionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ParseTransaction converts one raw record into a Transaction. It returns either a fully
// populated transaction and a nil error, or the zero Transaction and a *RejectionError.
func ParseTransaction(raw domain.RawRecord) (domain.Transaction, error) {
	if raw == nil {
		return domain.Transaction{}, reject("record", "record is null")
	}
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok || value == nil {
			return domain.Transaction{}, reject(field, "missing")
		}
	}

	amount, err := parseDecimal(raw["amount"])
	if err != nil {
		return domain.Transaction{}, reject("amount", "%v", err)
	}
	balance, err := parseDecimal(raw["balance"])
	if err != nil {
		return domain.Transaction{}, reject("balance", "%v", err)
	}

	date, err := parseTimestamp(raw["date"])
	if err != nil {
		return domain.Transaction{}, reject("date", "%v", err)
	}
	createdAt, err := parseTimestamp(raw["createdAt"])
	if err != nil {
		return domain.Transaction{}, reject("createdAt", "%v", err)
	}
	updatedAt, err := parseTimestamp(raw["updatedAt"])
	if err != nil {
		return domain.Transaction{}, reject("updatedAt", "%v", err)
	}

	description, ok := raw["description"].(string)
	if !ok {
		return domain.Transaction{}, reject("description", "expected string, got %T", raw["description"])
	}
	txType, ok := raw["type"].(string)
	if !ok {
		return domain.Transaction{}, reject("type", "expected string, got %T", raw["type"])
	}
	userID, ok := raw["userId"].(string)
	if !ok {
		return domain.Transaction{}, reject("userId", "expected string, got %T", raw["userId"])
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Transaction{}, reject("userId", "empty")
	}

	var id string
	if rawID, present := raw["_id"]; present && rawID != nil {
		id, ok = rawID.(string)
		if !ok {
			return domain.Transaction{}, reject("_id", "expected string, got %T", rawID)
		}
	}

	return domain.Transaction{
		ID:          id,
		Amount:      amount,
		Balance:     balance,
		Date:        date,
		Description: description,
		Type:        txType,
		UserID:      userID,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// ValidateRecords keeps the records that parse into transactions, preserving input order.
// Rejected records are dropped silently apart from a debug log line.
func ValidateRecords(records []domain.RawRecord, log zerolog.Logger) []domain.Transaction {
	valid := make([]domain.Transaction, 0, len(records))
	for i, raw := range records {
		tx, err := ParseTransaction(raw)
		if err != nil {
			log.Debug().Int("index", i).Err(err).Msg("Dropping invalid transaction record")
			continue
		}
		valid = append(valid, tx)
	}
	return valid
}

// parseDecimal reads a numeric field. Values whose float64 view overflows are rejected so
// every accepted amount stays representable in the statistical stages and in JSON.
func parseDecimal(value any) (decimal.Decimal, error) {
	d, err := decimalFromValue(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if f := d.InexactFloat64(); math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, fmt.Errorf("number %s out of range", d.String())
	}
	return d, nil
}

func decimalFromValue(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		return decimalFromFloat(v)
	case float32:
		return decimalFromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Decimal{}, fmt.Errorf("empty numeric string")
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Decimal{}, fmt.Errorf("expected number or numeric string, got %T", value)
	}
}

func decimalFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, fmt.Errorf("non-finite number")
	}
	return decimal.NewFromFloat(f), nil
}

func parseTimestamp(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected ISO-8601 string, got %T", value)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
