package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spendlens/internal/domain"
)

// flagIndices is an OutlierModel that flags fixed positions
type flagIndices []int

func (f flagIndices) Flag(amounts []float64) []bool {
	flags := make([]bool, len(amounts))
	for _, i := range f {
		flags[i] = true
	}
	return flags
}

func batchWith(t *testing.T, outlier string, description string) []domain.Transaction {
	t.Helper()
	var txs []domain.Transaction
	for i := 1; i <= 9; i++ {
		txs = append(txs, tx(t, fmt.Sprintf("2024-01-%02d", i), "Coffee", "-10"))
	}
	return append(txs, tx(t, "2024-01-10", description, outlier))
}

func TestAnomalyDetector_LargeExpense(t *testing.T) {
	detector := NewAnomalyDetector(ZScoreModel{Threshold: 2})

	got := detector.Detect(batchWith(t, "-1000", "Laptop"))

	require.Len(t, got, 1)
	assert.Equal(t, "Laptop", got[0].Description)
	assert.Equal(t, -1000.0, got[0].Amount)
	assert.Equal(t, "2024-01-10T00:00:00", got[0].Date)
	assert.InDelta(t, -3.0, got[0].ZScore, 1e-9)
	assert.Equal(t, "Unusually large expense of $1000.00 (z-score: -3.00)", got[0].Reason)
}

func TestAnomalyDetector_HighIncome(t *testing.T) {
	detector := NewAnomalyDetector(nil)

	got := detector.Detect(batchWith(t, "1000", "Bonus"))

	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].ZScore, 1e-9)
	assert.Equal(t, "Unusually high income of $1000.00 (z-score: 3.00)", got[0].Reason)
}

func TestAnomalyDetector_ConstantAmounts(t *testing.T) {
	detector := NewAnomalyDetector(flagIndices{0, 1, 2})
	txs := []domain.Transaction{
		tx(t, "2024-01-01", "a", "-25"),
		tx(t, "2024-01-02", "b", "-25"),
		tx(t, "2024-01-03", "c", "-25"),
	}

	got := detector.Detect(txs)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAnomalyDetector_TooFewTransactions(t *testing.T) {
	detector := NewAnomalyDetector(flagIndices{0})

	assert.Empty(t, detector.Detect([]domain.Transaction{tx(t, "2024-01-01", "a", "-25")}))
	assert.Empty(t, detector.Detect(nil))
}

func TestAnomalyDetector_PreservesInputOrder(t *testing.T) {
	detector := NewAnomalyDetector(flagIndices{2, 0})
	txs := []domain.Transaction{
		tx(t, "2024-01-01", "first", "-5"),
		tx(t, "2024-01-02", "second", "-10"),
		tx(t, "2024-01-03", "third", "-15"),
	}

	got := detector.Detect(txs)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Description)
	assert.Equal(t, "third", got[1].Description)
}

func TestAnomalyReason_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		description string
		amount      float64
		expected    string
	}{
		{"income wins over keywords", "Rolex refund", 50, "Unusually high income of $50.00 (z-score: 0.50)"},
		{"large expense wins over keywords", "Whole Foods", -250, "Unusually large expense of $250.00 (z-score: -2.50)"},
		{"luxury", "ROLEX boutique", -50, "Uncommon luxury expense: ROLEX boutique"},
		{"luxury before groceries", "Luxury supermarket", -50, "Uncommon luxury expense: Luxury supermarket"},
		{"groceries", "Whole Foods Market", -50, "Unusually high grocery expense of $50.00"},
		{"generic", "Hardware store", -50, "Outlier transaction of $50.00 (z-score: -0.50)"},
		{"keyword inside a longer word", "Space heater", -50, "Outlier transaction of $50.00 (z-score: -0.50)"},
		{"grocery keyword inside a longer word", "Marketplace seller", -50, "Outlier transaction of $50.00 (z-score: -0.50)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transaction := domain.Transaction{Description: tt.description}
			reason := anomalyReason(transaction, tt.amount, tt.amount/100, 0, 100)
			assert.Equal(t, tt.expected, reason)
		})
	}
}

func TestZScoreModel_Flag(t *testing.T) {
	model := ZScoreModel{Threshold: 2}

	assert.Equal(t, []bool{false, false}, model.Flag([]float64{1, 1}))
	assert.Equal(t, []bool{false}, model.Flag([]float64{1}))

	amounts := []float64{-10, -10, -10, -10, -10, -10, -10, -10, -10, -1000}
	flags := model.Flag(amounts)
	assert.True(t, flags[9])
	for _, f := range flags[:9] {
		assert.False(t, f)
	}
}

func TestIsolationForest_FlagsIsolatedPoint(t *testing.T) {
	var amounts []float64
	for i := 0; i < 19; i++ {
		amounts = append(amounts, -10-float64(i%5))
	}
	amounts = append(amounts, -5000)

	forest := NewIsolationForest(0.05, 42)
	flags := forest.Flag(amounts)

	require.Len(t, flags, len(amounts))
	assert.True(t, flags[19])
	flagged := 0
	for _, f := range flags {
		if f {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestIsolationForest_Deterministic(t *testing.T) {
	amounts := []float64{-12, -40, -13, 2500, -15, -11, -300, -14, -16, -12}
	forest := NewIsolationForest(0.2, 7)

	assert.Equal(t, forest.Flag(amounts), forest.Flag(amounts))
}

func TestIsolationForest_Degenerate(t *testing.T) {
	forest := NewIsolationForest(0.1, 1)

	assert.Equal(t, []bool{false}, forest.Flag([]float64{5}))
	assert.Equal(t, []bool{false, false}, IsolationForest{}.Flag([]float64{1, 2}))
}

func TestAnomalyDetector_WithIsolationForest(t *testing.T) {
	detector := NewAnomalyDetector(NewIsolationForest(0.1, 42))

	got := detector.Detect(batchWith(t, "-1000", "Designer handbag"))

	require.Len(t, got, 1)
	assert.Equal(t, "Designer handbag", got[0].Description)
	assert.Equal(t, "Unusually large expense of $1000.00 (z-score: -3.00)", got[0].Reason)
}
