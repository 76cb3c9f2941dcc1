package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/events"
)

// SubscriberSink delivers the stage events of one analysis run to one subscriber.
// It satisfies analysis.ProgressSink.
type SubscriberSink struct {
	sub     Subscriber
	timeout time.Duration
	log     zerolog.Logger
}

// NewSubscriberSink creates a point-to-point sink. A non-positive timeout selects
// DefaultSendTimeout. log is used as given and should already identify the subscriber.
func NewSubscriberSink(sub Subscriber, timeout time.Duration, log zerolog.Logger) *SubscriberSink {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &SubscriberSink{
		sub:     sub,
		timeout: timeout,
		log:     log,
	}
}

// Report sends event if the subscriber is still open. Failures are logged and dropped.
func (s *SubscriberSink) Report(ctx context.Context, event events.ProgressEvent) {
	if s.sub.Closed() {
		s.log.Debug().Str("message", event.Message).Msg("Subscriber closed, dropping progress event")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.sub.Send(sendCtx, event); err != nil {
		s.log.Warn().Err(err).Float64("progress", event.Progress).Msg("Failed to send progress event")
	}
}
