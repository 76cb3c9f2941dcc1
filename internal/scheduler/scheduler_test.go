package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spendlens/internal/events"
)

type countingJob struct {
	name   string
	runs   int32
	err    error
	gotCtx context.Context
	mu     sync.Mutex
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	j.mu.Lock()
	j.gotCtx = ctx
	j.mu.Unlock()
	return j.err
}

// mockBroadcaster records broadcast messages
type mockBroadcaster struct {
	mu       sync.Mutex
	count    int
	messages []events.EventData
}

func (m *mockBroadcaster) Broadcast(_ context.Context, msg events.EventData) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.count
}

func (m *mockBroadcaster) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{name: "test"}

	require.NoError(t, s.AddJob("@every 30s", job))
	require.NoError(t, s.AddJob("*/5 * * * *", &countingJob{name: "five_field"}))
	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "six_field"}))

	assert.ElementsMatch(t, []string{"test", "five_field", "six_field"}, s.Jobs())
}

func TestScheduler_AddJobInvalidSchedule(t *testing.T) {
	s := New(testLogger())

	err := s.AddJob("every now and then", &countingJob{name: "bad"})

	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{name: "tick", err: errors.New("ignored")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{name: "now"}

	require.NoError(t, s.RunNow(job))
	s.Start()
	s.Stop()

	job.mu.Lock()
	defer job.mu.Unlock()
	assert.Error(t, job.gotCtx.Err())
}

func TestStatusBroadcastJob_Run(t *testing.T) {
	broadcaster := &mockBroadcaster{count: 2}
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	job := NewStatusBroadcastJob(broadcaster, started, testLogger())
	job.now = func() time.Time { return started.Add(90 * time.Second) }

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, broadcaster.messages, 1)
	status, ok := broadcaster.messages[0].(events.StatusData)
	require.True(t, ok)
	assert.Equal(t, events.StatusUpdate, status.Type)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 2, status.Subscribers)
	assert.Equal(t, int64(90), status.UptimeSeconds)
	assert.Equal(t, "2024-01-01T12:01:30Z", status.Timestamp)
	assert.Equal(t, "status_broadcast", job.Name())
}

func TestStatusBroadcastJob_SkipsWithoutSubscribers(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	job := NewStatusBroadcastJob(broadcaster, time.Now(), testLogger())

	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, broadcaster.messages)
}
