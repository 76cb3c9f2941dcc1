// Package analysis runs the transaction analysis pipeline: validation, classification, anomaly
// detection, spending aggregation and trend prediction, plus the monthly summary variant.
package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/domain"
	"github.com/aristath/spendlens/internal/events"
	"github.com/aristath/spendlens/internal/utils"
	"github.com/aristath/spendlens/pkg/logger"
)

// slowStageThreshold is the stage duration above which a warning is logged.
const slowStageThreshold = 5 * time.Second

// ProgressSink receives stage progress for one run. Delivery is best effort: a sink must not
// block for long and its failures never affect the run.
type ProgressSink interface {
	Report(ctx context.Context, event events.ProgressEvent)
}

// State is a step of the pipeline state machine.
type State string

// Analysis pipeline states.
const (
	StateValidating         State = "Validating"
	StateClassifying        State = "Classifying"
	StateDetectingAnomalies State = "DetectingAnomalies"
	StateAnalyzingSpending  State = "AnalyzingSpending"
	StatePredictingTrends   State = "PredictingTrends"
	StateDone               State = "Done"
	StateFailed             State = "Failed"
)

// Summary pipeline states.
const (
	StateCalculatingTotals      State = "CalculatingTotals"
	StateBuildingMonthlySummary State = "BuildingMonthlySummary"
	StateCalculatingTrends      State = "CalculatingTrends"
)

// stage describes what is reported when the pipeline enters a state.
type stage struct {
	state    State
	name     string
	message  string
	progress float64
}

var (
	validateStage = stage{StateValidating, "Validation", "Validating transactions", 0.1}

	classifyStage = stage{StateClassifying, "Classification", "Classifying transactions", 0.2}
	anomalyStage  = stage{StateDetectingAnomalies, "Anomaly detection", "Detecting anomalies", 0.4}
	spendingStage = stage{StateAnalyzingSpending, "Spending analysis", "Analyzing spending patterns", 0.6}
	trendStage    = stage{StatePredictingTrends, "Trend prediction", "Predicting spending trends", 0.8}

	totalsStage  = stage{StateCalculatingTotals, "Totals calculation", "Calculating totals", 0.3}
	monthlyStage = stage{StateBuildingMonthlySummary, "Monthly summary", "Building monthly summary", 0.6}
	trendsStage  = stage{StateCalculatingTrends, "Trend calculation", "Calculating trends", 0.8}
)

// Orchestrator sequences the pipeline stages for one batch at a time. It holds no per-run
// state, so one instance may serve concurrent runs.
type Orchestrator struct {
	categorizer *Categorizer
	detector    *AnomalyDetector
	aggregator  *SpendingAggregator
	predictor   *TrendPredictor
	summarizer  *Summarizer
	log         zerolog.Logger
}

// NewOrchestrator wires the pipeline stages.
func NewOrchestrator(categorizer *Categorizer, detector *AnomalyDetector, log zerolog.Logger) *Orchestrator {
	if detector == nil {
		detector = NewAnomalyDetector(nil)
	}
	return &Orchestrator{
		categorizer: categorizer,
		detector:    detector,
		aggregator:  NewSpendingAggregator(),
		predictor:   NewTrendPredictor(),
		summarizer:  NewSummarizer(),
		log:         logger.Component(log, "orchestrator"),
	}
}

// run carries the per-invocation context of one pipeline execution.
type run struct {
	id       string
	taskType string
	sink     ProgressSink
	state    State
	log      zerolog.Logger
}

func (o *Orchestrator) newRun(taskType string, sink ProgressSink) *run {
	id := uuid.New().String()
	return &run{
		id:       id,
		taskType: taskType,
		sink:     sink,
		log:      o.log.With().Str("run_id", id).Str("task", taskType).Logger(),
	}
}

func (r *run) report(ctx context.Context, message string, progress float64) {
	if r.sink == nil {
		return
	}
	r.sink.Report(ctx, events.NewProgressEvent(message, progress, r.taskType))
}

func (r *run) enter(ctx context.Context, s stage) {
	r.state = s.state
	r.log.Debug().Str("state", string(s.state)).Msg("Entering stage")
	r.report(ctx, s.message, s.progress)
}

// exec runs fn as the named stage. Errors and panics become a *StageError.
func (r *run) exec(ctx context.Context, s stage, fn func() error) (err error) {
	r.enter(ctx, s)
	stop := utils.OperationTimer(s.name, slowStageThreshold, r.log)
	defer func() {
		stop()
		if p := recover(); p != nil {
			r.log.Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Msg("Stage panicked")
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			err = &StageError{Stage: s.name, Err: err}
		}
	}()
	return fn()
}

func (r *run) fail(ctx context.Context, err error, failedMessage string) {
	r.log.Error().Err(err).Str("state", string(r.state)).Msg("Pipeline failed")
	r.state = StateFailed
	r.report(ctx, failedMessage, 1.0)
}

func (r *run) validate(ctx context.Context, records []domain.RawRecord) ([]domain.Transaction, error) {
	r.enter(ctx, validateStage)
	if len(records) == 0 {
		r.log.Warn().Msg("No transactions provided")
		return nil, ErrNoTransactions
	}
	txs := ValidateRecords(records, r.log)
	if len(txs) == 0 {
		r.log.Warn().Int("records", len(records)).Msg("No valid transactions provided")
		return nil, ErrNoValidTransactions
	}
	r.log.Debug().Int("records", len(records)).Int("valid", len(txs)).Msg("Validated batch")
	return txs, nil
}

// Analyze runs the full analysis pipeline. sink may be nil. The returned error is
// ErrNoTransactions, ErrNoValidTransactions or a *StageError.
func (o *Orchestrator) Analyze(ctx context.Context, records []domain.RawRecord, sink ProgressSink) (*AnalysisResult, error) {
	r := o.newRun(events.TaskAnalysis, sink)
	start := time.Now()

	txs, err := r.validate(ctx, records)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{}
	err = r.exec(ctx, classifyStage, func() error {
		breakdown, err := o.categorizer.Categorize(ctx, txs)
		if err != nil {
			return err
		}
		result.CategoryBreakdown = breakdown
		return nil
	})
	if err == nil {
		err = r.exec(ctx, anomalyStage, func() error {
			result.Anomalies = o.detector.Detect(txs)
			return nil
		})
	}
	if err == nil {
		err = r.exec(ctx, spendingStage, func() error {
			result.SpendingAnalysis = o.aggregator.Aggregate(txs)
			return nil
		})
	}
	if err == nil {
		err = r.exec(ctx, trendStage, func() error {
			result.SpendingTrends = o.predictor.Predict(txs)
			return nil
		})
	}
	if err != nil {
		r.fail(ctx, err, "Analysis failed")
		return nil, err
	}

	r.state = StateDone
	r.report(ctx, "Analysis complete", 1.0)
	r.log.Info().
		Int("transactions", len(txs)).
		Int("anomalies", len(result.Anomalies)).
		Dur("duration", time.Since(start)).
		Msg("Analysis complete")
	return result, nil
}

// Summarize runs the monthly summary pipeline. sink may be nil.
func (o *Orchestrator) Summarize(ctx context.Context, records []domain.RawRecord, sink ProgressSink) (*Summary, error) {
	r := o.newRun(events.TaskSummarize, sink)
	start := time.Now()

	txs, err := r.validate(ctx, records)
	if err != nil {
		return nil, err
	}

	var (
		totals  summaryTotals
		monthly monthlySeries
		summary Summary
	)
	err = r.exec(ctx, totalsStage, func() error {
		totals = o.summarizer.totals(txs)
		return nil
	})
	if err == nil {
		err = r.exec(ctx, monthlyStage, func() error {
			monthly = o.summarizer.monthly(txs)
			summary = o.summarizer.build(txs, totals, monthly)
			return nil
		})
	}
	if err == nil {
		err = r.exec(ctx, trendsStage, func() error {
			o.summarizer.trends(&summary, monthly)
			return nil
		})
	}
	if err != nil {
		r.fail(ctx, err, "Summary failed")
		return nil, err
	}

	r.state = StateDone
	r.report(ctx, "Summary complete", 1.0)
	r.log.Info().
		Int("transactions", len(txs)).
		Int("months", len(monthly.months)).
		Dur("duration", time.Since(start)).
		Msg("Summary complete")
	return &summary, nil
}
