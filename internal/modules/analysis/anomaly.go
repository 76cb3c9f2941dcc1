package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/spendlens/internal/domain"
)

// Anomaly is one flagged transaction with the reason it was flagged.
type Anomaly struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
	ZScore      float64 `json:"z_score"`
}

// OutlierModel flags outliers in a batch of amounts. The returned slice is parallel to the input.
type OutlierModel interface {
	Flag(amounts []float64) []bool
}

var (
	luxuryKeywords = []string{
		"luxury", "jewelry", "jeweler", "rolex", "gucci", "louis vuitton", "prada", "yacht", "designer",
		"first class", "champagne", "spa", "resort",
	}
	groceryKeywords = []string{
		"grocery", "groceries", "supermarket", "instacart", "whole foods", "costco", "market",
	}
)

// largeExpenseSigmas is how many standard deviations past |mean| an expense has to be to be
// reported as unusually large.
const largeExpenseSigmas = 2.0

// AnomalyDetector flags statistically unusual transactions and explains each flag.
type AnomalyDetector struct {
	model OutlierModel
}

// NewAnomalyDetector creates a detector backed by the given model. A nil model selects a
// z-score model with threshold 2.
func NewAnomalyDetector(model OutlierModel) *AnomalyDetector {
	if model == nil {
		model = ZScoreModel{Threshold: 2}
	}
	return &AnomalyDetector{model: model}
}

// Detect returns the anomalies in input order. Batches with fewer than two transactions or
// zero spread yield no anomalies.
func (d *AnomalyDetector) Detect(txs []domain.Transaction) []Anomaly {
	if len(txs) < 2 {
		return []Anomaly{}
	}

	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.AmountFloat()
	}

	mean, std := stat.PopMeanStdDev(amounts, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return []Anomaly{}
	}

	flags := d.model.Flag(amounts)
	anomalies := []Anomaly{}
	for i, tx := range txs {
		if i >= len(flags) || !flags[i] {
			continue
		}
		z := (amounts[i] - mean) / std
		anomalies = append(anomalies, Anomaly{
			Date:        formatISO(tx.Date),
			Description: tx.Description,
			Amount:      amounts[i],
			Reason:      anomalyReason(tx, amounts[i], z, mean, std),
			ZScore:      z,
		})
	}
	return anomalies
}

// anomalyReason picks the first matching explanation.
func anomalyReason(tx domain.Transaction, amount, z, mean, std float64) string {
	description := strings.ToLower(tx.Description)
	switch {
	case amount > 0:
		return fmt.Sprintf("Unusually high income of $%.2f (z-score: %.2f)", amount, z)
	case amount < 0 && math.Abs(amount) > math.Abs(mean)+largeExpenseSigmas*std:
		return fmt.Sprintf("Unusually large expense of $%.2f (z-score: %.2f)", math.Abs(amount), z)
	case amount < 0 && containsAny(description, luxuryKeywords):
		return fmt.Sprintf("Uncommon luxury expense: %s", tx.Description)
	case amount < 0 && containsAny(description, groceryKeywords):
		return fmt.Sprintf("Unusually high grocery expense of $%.2f", math.Abs(amount))
	default:
		return fmt.Sprintf("Outlier transaction of $%.2f (z-score: %.2f)", math.Abs(amount), z)
	}
}

// ZScoreModel flags amounts whose absolute z-score exceeds Threshold.
type ZScoreModel struct {
	Threshold float64
}

// Flag implements OutlierModel.
func (m ZScoreModel) Flag(amounts []float64) []bool {
	flags := make([]bool, len(amounts))
	if len(amounts) < 2 {
		return flags
	}
	mean, std := stat.PopMeanStdDev(amounts, nil)
	if std == 0 || math.IsNaN(std) {
		return flags
	}
	for i, a := range amounts {
		flags[i] = math.Abs((a-mean)/std) > m.Threshold
	}
	return flags
}
