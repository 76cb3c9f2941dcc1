package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/domain"
	"github.com/aristath/spendlens/internal/modules/analysis"
)

// maxBodyBytes caps request bodies for the analysis endpoints.
const maxBodyBytes = 10 << 20

// errInvalidInput is reported when a request body is not a JSON array of records.
var errInvalidInput = errors.New("Invalid input - expected list of transactions")

// Analyzer runs the analysis pipelines. *analysis.Orchestrator implements it.
type Analyzer interface {
	Analyze(ctx context.Context, records []domain.RawRecord, sink analysis.ProgressSink) (*analysis.AnalysisResult, error)
	Summarize(ctx context.Context, records []domain.RawRecord, sink analysis.ProgressSink) (*analysis.Summary, error)
}

// AnalysisHandlers serves the request/response analysis surface
type AnalysisHandlers struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewAnalysisHandlers creates the analysis handlers
func NewAnalysisHandlers(analyzer Analyzer, log zerolog.Logger) *AnalysisHandlers {
	return &AnalysisHandlers{
		analyzer: analyzer,
		log:      log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes registers the analysis routes and their unprefixed aliases
func (h *AnalysisHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/api/analyze", h.HandleAnalyze)
	r.Post("/api/summarize", h.HandleSummarize)
	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/summarize", h.HandleSummarize)
}

// HandleAnalyze runs the full analysis on a JSON array of transactions
// POST /api/analyze
func (h *AnalysisHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	records, err := decodeRecordsBody(w, r)
	if err != nil {
		h.log.Debug().Err(err).Msg("Rejecting analysis request body")
		writeError(w, http.StatusBadRequest, errInvalidInput.Error(), h.log)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), records, nil)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result, h.log)
}

// HandleSummarize builds the monthly summary of a JSON array of transactions
// POST /api/summarize
func (h *AnalysisHandlers) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	records, err := decodeRecordsBody(w, r)
	if err != nil {
		h.log.Debug().Err(err).Msg("Rejecting summary request body")
		writeError(w, http.StatusBadRequest, errInvalidInput.Error(), h.log)
		return
	}

	summary, err := h.analyzer.Summarize(r.Context(), records, nil)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary, h.log)
}

func (h *AnalysisHandlers) writePipelineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if analysis.IsEmptyBatch(err) {
		status = http.StatusBadRequest
	}
	writeError(w, status, err.Error(), h.log)
}

func decodeRecordsBody(w http.ResponseWriter, r *http.Request) ([]domain.RawRecord, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// decodeRecords parses a JSON array of transaction objects. Numbers are kept as json.Number so
// amounts reach the validator without float rounding. Elements that are not objects become
// nil records, which the validator drops.
func decodeRecords(data []byte) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var elements []json.RawMessage
	if err := dec.Decode(&elements); err != nil {
		return nil, err
	}
	if elements == nil {
		return nil, errInvalidInput
	}

	records := make([]domain.RawRecord, len(elements))
	for i, raw := range elements {
		elemDec := json.NewDecoder(bytes.NewReader(raw))
		elemDec.UseNumber()
		var record domain.RawRecord
		if err := elemDec.Decode(&record); err != nil {
			continue
		}
		records[i] = record
	}
	return records, nil
}
