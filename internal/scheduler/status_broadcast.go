package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/events"
)

// Broadcaster pushes one message to every live subscriber
type Broadcaster interface {
	Broadcast(ctx context.Context, msg events.EventData) int
	Len() int
}

// StatusBroadcastJob pushes a status message to every subscriber
type StatusBroadcastJob struct {
	broadcaster Broadcaster
	startedAt   time.Time
	now         func() time.Time
	log         zerolog.Logger
}

// NewStatusBroadcastJob creates the status push job. startedAt is used for the reported uptime.
func NewStatusBroadcastJob(broadcaster Broadcaster, startedAt time.Time, log zerolog.Logger) *StatusBroadcastJob {
	return &StatusBroadcastJob{
		broadcaster: broadcaster,
		startedAt:   startedAt,
		now:         time.Now,
		log:         log.With().Str("job", "status_broadcast").Logger(),
	}
}

// Name returns the job name
func (j *StatusBroadcastJob) Name() string {
	return "status_broadcast"
}

// Run sends one status message
func (j *StatusBroadcastJob) Run(ctx context.Context) error {
	subscribers := j.broadcaster.Len()
	if subscribers == 0 {
		return nil
	}

	now := j.now()
	status := events.NewStatusData("healthy", subscribers, now.Sub(j.startedAt), now)
	delivered := j.broadcaster.Broadcast(ctx, status)

	j.log.Debug().
		Int("subscribers", subscribers).
		Int("delivered", delivered).
		Msg("Status broadcast sent")
	return nil
}
