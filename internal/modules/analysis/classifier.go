package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/spendlens/internal/domain"
	"github.com/aristath/spendlens/pkg/logger"
)

// Classifier ranks candidate labels for a piece of text, best match first.
// Implementations may call out to an inference service; Categorizer treats them as opaque.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]string, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string, labels []string) ([]string, error)

// Classify calls f(ctx, text, labels).
func (f ClassifierFunc) Classify(ctx context.Context, text string, labels []string) ([]string, error) {
	return f(ctx, text, labels)
}

// DefaultLabels is the label set used when none is configured.
var DefaultLabels = []string{"groceries", "housing", "transportation", "entertainment", "utilities", "other"}

// ErrEmptyRanking is returned when a classifier produces no labels for a transaction.
var ErrEmptyRanking = errors.New("classifier returned no labels")

// defaultKeywords maps the default labels to description keywords.
var defaultKeywords = map[string][]string{
	"groceries": {
		"instacart", "grocery", "groceries", "supermarket", "walmart", "costco", "whole foods",
		"trader joe", "aldi", "kroger", "safeway", "market",
	},
	"housing": {
		"rent", "rental", "mortgage", "landlord", "property", "hoa", "apartment", "lease",
	},
	"transportation": {
		"uber", "lyft", "taxi", "fuel", "gas station", "shell", "chevron", "transit", "metro",
		"parking", "toll", "airline", "train",
	},
	"entertainment": {
		"netflix", "spotify", "openai", "hulu", "disney", "cinema", "movie", "theater", "steam",
		"concert", "youtube",
	},
	"utilities": {
		"electric", "electricity", "water", "internet", "phone", "utility", "comcast", "verizon",
		"at&t", "power", "sewer",
	},
}

// KeywordClassifier ranks labels by how many of their keywords occur in the text as whole words.
// Labels without a keyword table match on their own name.
type KeywordClassifier struct {
	keywords map[string][]string
	fallback string
}

// NewKeywordClassifier creates a classifier using the built-in keyword tables. Extra tables
// override or extend the defaults per label.
func NewKeywordClassifier(extra map[string][]string) *KeywordClassifier {
	keywords := make(map[string][]string, len(defaultKeywords)+len(extra))
	for label, words := range defaultKeywords {
		keywords[label] = words
	}
	for label, words := range extra {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			lowered = append(lowered, strings.ToLower(w))
		}
		keywords[strings.ToLower(label)] = lowered
	}
	return &KeywordClassifier{keywords: keywords, fallback: "other"}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(ctx context.Context, text string, labels []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("empty label set")
	}

	lowered := strings.ToLower(text)
	hits := make(map[string]int, len(labels))
	for _, label := range labels {
		words, ok := c.keywords[label]
		if !ok {
			words = []string{label}
		}
		for _, w := range words {
			if containsWord(lowered, w) {
				hits[label]++
			}
		}
	}

	order := make(map[string]int, len(labels))
	for i, label := range labels {
		order[label] = i
	}
	fallback := c.fallbackFor(labels)

	ranked := append([]string(nil), labels...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if hits[a] != hits[b] {
			return hits[a] > hits[b]
		}
		// With no keyword hits the fallback label leads.
		if hits[a] == 0 && (a == fallback) != (b == fallback) {
			return a == fallback
		}
		return order[a] < order[b]
	})
	return ranked, nil
}

func (c *KeywordClassifier) fallbackFor(labels []string) string {
	for _, label := range labels {
		if label == c.fallback {
			return label
		}
	}
	return labels[len(labels)-1]
}

// CategoryBreakdown is the classification stage output.
type CategoryBreakdown struct {
	Categories  map[string]float64 `json:"categories"`
	Percentages map[string]float64 `json:"percentages"`
}

// Categorizer assigns each transaction one label and totals absolute amounts per label.
type Categorizer struct {
	classifier Classifier
	labels     []string
	fallback   string
	workers    int
	log        zerolog.Logger
}

// NewCategorizer creates the classification stage. workers bounds how many classifier calls
// run at once.
func NewCategorizer(classifier Classifier, labels []string, workers int, log zerolog.Logger) *Categorizer {
	if workers < 1 {
		workers = 1
	}
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	fallback := labels[len(labels)-1]
	for _, label := range labels {
		if label == "other" {
			fallback = label
		}
	}
	return &Categorizer{
		classifier: classifier,
		labels:     append([]string(nil), labels...),
		fallback:   fallback,
		workers:    workers,
		log:        logger.Component(log, "categorizer"),
	}
}

// Labels returns a copy of the configured label set.
func (c *Categorizer) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Assign returns the top label per transaction, in input order.
func (c *Categorizer) Assign(ctx context.Context, txs []domain.Transaction) ([]string, error) {
	assigned := make([]string, len(txs))
	allowed := make(map[string]bool, len(c.labels))
	for _, label := range c.labels {
		allowed[label] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range txs {
		i := i
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("classify transaction %d: panic: %v", i, p)
				}
			}()
			ranked, err := c.classifier.Classify(gctx, txs[i].Description, c.labels)
			if err != nil {
				return fmt.Errorf("classify transaction %d: %w", i, err)
			}
			if len(ranked) == 0 {
				return fmt.Errorf("classify transaction %d: %w", i, ErrEmptyRanking)
			}
			label := ranked[0]
			if !allowed[label] {
				c.log.Debug().Str("label", label).Msg("Classifier returned label outside the label set")
				label = c.fallback
			}
			assigned[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assigned, nil
}

// Categorize runs the classification stage and builds the per-category totals.
func (c *Categorizer) Categorize(ctx context.Context, txs []domain.Transaction) (CategoryBreakdown, error) {
	assigned, err := c.Assign(ctx, txs)
	if err != nil {
		return CategoryBreakdown{}, err
	}

	sums := make(map[string]decimal.Decimal, len(c.labels))
	total := decimal.Zero
	for i, tx := range txs {
		abs := tx.Amount.Abs()
		sums[assigned[i]] = sums[assigned[i]].Add(abs)
		total = total.Add(abs)
	}

	breakdown := CategoryBreakdown{
		Categories:  make(map[string]float64, len(c.labels)),
		Percentages: make(map[string]float64, len(c.labels)),
	}
	for _, label := range c.labels {
		amount := sums[label]
		breakdown.Categories[label] = amount.InexactFloat64()
		if total.IsZero() {
			breakdown.Percentages[label] = 0
			continue
		}
		breakdown.Percentages[label] = amount.InexactFloat64() / total.InexactFloat64() * 100
	}
	return breakdown, nil
}
