package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/spendlens/internal/domain"
	"github.com/aristath/spendlens/internal/events"
	"github.com/aristath/spendlens/internal/modules/analysis"
	"github.com/aristath/spendlens/internal/progress"
	"github.com/aristath/spendlens/pkg/logger"
)

// Channel actions
const (
	actionAnalyze = "analyze"
	actionSummary = "summary"
)

// channelRequest is one message received on the persistent channel
type channelRequest struct {
	Action       string          `json:"action"`
	Transactions json.RawMessage `json:"transactions"`
}

// wsSubscriber adapts a websocket connection to progress.Subscriber
type wsSubscriber struct {
	id     string
	conn   *websocket.Conn
	closed atomic.Bool
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{
		id:   uuid.New().String(),
		conn: conn,
	}
}

func (s *wsSubscriber) ID() string { return s.id }

// Send writes msg as one JSON text frame. An encoding failure only fails this message; a
// failed write leaves the connection unusable, so the subscriber is marked closed.
func (s *wsSubscriber) Send(ctx context.Context, msg any) error {
	if s.closed.Load() {
		return progress.ErrSubscriberClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.closed.Store(true)
		return err
	}
	return nil
}

func (s *wsSubscriber) Closed() bool {
	return s.closed.Load()
}

func (s *wsSubscriber) Close(reason string) error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close(websocket.StatusGoingAway, reason)
}

// WebSocketHandler serves the persistent progress channel
type WebSocketHandler struct {
	analyzer    Analyzer
	registry    *progress.Registry
	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewWebSocketHandler creates the channel handler
func NewWebSocketHandler(analyzer Analyzer, registry *progress.Registry, sendTimeout time.Duration, log zerolog.Logger) *WebSocketHandler {
	if sendTimeout <= 0 {
		sendTimeout = registry.SendTimeout()
	}
	return &WebSocketHandler{
		analyzer:    analyzer,
		registry:    registry,
		sendTimeout: sendTimeout,
		log:         logger.Component(log, "websocket"),
	}
}

// RegisterRoutes registers the channel endpoint and its alias
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.ServeHTTP)
	r.Get("/api/ws", h.ServeHTTP)
}

// ServeHTTP upgrades the request and processes channel requests until the client leaves.
// GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxBodyBytes)

	sub := newWSSubscriber(conn)
	log := h.log.With().Str("subscriber", sub.ID()).Logger()
	h.registry.Register(sub)
	log.Info().Msg("WebSocket connection established")

	defer func() {
		h.registry.Unregister(sub)
		if err := sub.Close(""); err != nil {
			log.Debug().Err(err).Msg("Error closing WebSocket")
		}
		log.Info().Msg("WebSocket connection closed")
	}()

	ctx := r.Context()
	for {
		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				log.Debug().Int("status", int(closeStatus)).Msg("WebSocket closed normally")
			} else if ctx.Err() != nil || sub.Closed() {
				log.Debug().Msg("Read cancelled")
			} else {
				log.Warn().Err(err).Msg("Unexpected WebSocket read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			log.Debug().Int("type", int(msgType)).Msg("Ignoring non-text message")
			continue
		}

		h.handleMessage(ctx, sub, message, log)
	}
}

// handleMessage runs one channel request to completion and sends its terminal message
func (h *WebSocketHandler) handleMessage(ctx context.Context, sub *wsSubscriber, message []byte, log zerolog.Logger) {
	var req channelRequest
	if err := json.Unmarshal(message, &req); err != nil {
		log.Warn().Err(err).Msg("Malformed channel request")
		h.reply(ctx, sub, events.NewErrorMessage("Invalid message: "+err.Error()), log)
		return
	}
	if req.Action != actionAnalyze && req.Action != actionSummary {
		log.Debug().Str("action", req.Action).Msg("Unknown channel action")
		h.reply(ctx, sub, events.NewUnknownActionMessage(), log)
		return
	}

	var records []domain.RawRecord
	if len(req.Transactions) > 0 && string(req.Transactions) != "null" {
		decoded, err := decodeRecords(req.Transactions)
		if err != nil {
			h.reply(ctx, sub, events.NewErrorMessage(errInvalidInput.Error()), log)
			return
		}
		records = decoded
	}

	sink := progress.NewSubscriberSink(sub, h.sendTimeout, log)
	if req.Action == actionAnalyze {
		result, err := h.analyzer.Analyze(ctx, records, sink)
		if err != nil {
			h.replyError(ctx, sub, err, log)
			return
		}
		h.reply(ctx, sub, events.ResultMessage{
			Action: events.ActionAnalysisComplete,
			Type:   events.TaskAnalysis,
			Result: result,
		}, log)
		return
	}

	summary, err := h.analyzer.Summarize(ctx, records, sink)
	if err != nil {
		h.replyError(ctx, sub, err, log)
		return
	}
	h.reply(ctx, sub, events.ResultMessage{
		Action: events.ActionSummaryComplete,
		Type:   events.TaskSummarize,
		Result: summary,
	}, log)
}

func (h *WebSocketHandler) replyError(ctx context.Context, sub *wsSubscriber, err error, log zerolog.Logger) {
	var stageErr *analysis.StageError
	if errors.As(err, &stageErr) {
		log.Error().Err(err).Str("stage", stageErr.Stage).Msg("Channel request failed")
	}
	h.reply(ctx, sub, events.NewErrorMessage(err.Error()), log)
}

// reply sends the terminal message of a request. Failures are logged and dropped.
func (h *WebSocketHandler) reply(ctx context.Context, sub *wsSubscriber, msg events.ResultMessage, log zerolog.Logger) {
	if sub.Closed() {
		log.Debug().Str("action", msg.Action).Msg("Subscriber closed, dropping result")
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	err := sub.Send(sendCtx, msg)
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("action", msg.Action).Msg("Failed to send result")
	if sub.Closed() || msg.Action == events.ActionError {
		return
	}
	// The connection is still usable, so the client gets an error in place of the result
	if err := sub.Send(sendCtx, events.NewErrorMessage("Failed to encode result")); err != nil {
		log.Warn().Err(err).Msg("Failed to send encoding error")
	}
}
