package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterrisk/clusterrisk/internal/events"
)

type stubJob struct {
	name  string
	err   error
	calls int
	ctx   context.Context
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context) error {
	j.calls++
	j.ctx = ctx
	return j.err
}

// recordEvents works without locking because the bus dispatches inline
// on the publishing goroutine.
func recordEvents(bus *events.Bus) *[]*events.Event {
	var seen []*events.Event
	record := func(e *events.Event) { seen = append(seen, e) }
	bus.Subscribe(events.JobStarted, record)
	bus.Subscribe(events.JobCompleted, record)
	bus.Subscribe(events.JobFailed, record)
	return &seen
}

func newTestScheduler() (*Scheduler, *events.Bus) {
	bus := events.NewBus(zerolog.Nop())
	return New(bus, zerolog.Nop()), bus
}

func TestRunNow_PublishesLifecycleEvents(t *testing.T) {
	s, bus := newTestScheduler()
	seen := recordEvents(bus)
	job := &stubJob{name: "demo"}

	err := s.RunNow(job)

	require.NoError(t, err)
	assert.Equal(t, 1, job.calls)

	require.Len(t, *seen, 2)
	assert.Equal(t, events.JobStarted, (*seen)[0].Type)
	assert.Equal(t, "demo", (*seen)[0].Data["job"])
	assert.Equal(t, events.JobCompleted, (*seen)[1].Type)
	assert.Equal(t, "demo", (*seen)[1].Data["job"])
	assert.Contains(t, (*seen)[1].Data, "duration_ms")
}

func TestRunNow_FailurePublishesJobFailed(t *testing.T) {
	s, bus := newTestScheduler()
	seen := recordEvents(bus)
	job := &stubJob{name: "broken", err: errors.New("scrape blew up")}

	err := s.RunNow(job)

	require.Error(t, err)
	require.Len(t, *seen, 2)
	assert.Equal(t, events.JobStarted, (*seen)[0].Type)
	assert.Equal(t, events.JobFailed, (*seen)[1].Type)
	assert.Equal(t, "broken", (*seen)[1].Data["job"])
	assert.Equal(t, "scrape blew up", (*seen)[1].Data["error"])
}

func TestAddJob(t *testing.T) {
	s, _ := newTestScheduler()
	job := &stubJob{name: "nightly"}

	require.NoError(t, s.AddJob("0 0 3 * * *", job))
	assert.Equal(t, 0, job.calls, "registration must not run the job")
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s, _ := newTestScheduler()

	err := s.AddJob("every now and then", &stubJob{name: "vague"})
	require.Error(t, err)
}

func TestStop_CancelsJobContext(t *testing.T) {
	s, _ := newTestScheduler()
	job := &stubJob{name: "probe"}

	require.NoError(t, s.RunNow(job))
	require.NotNil(t, job.ctx)
	require.NoError(t, job.ctx.Err())

	s.Stop()
	assert.ErrorIs(t, job.ctx.Err(), context.Canceled)
}

func TestFieldsOf(t *testing.T) {
	fields := fieldsOf([]interface{}{"now", "later", "entries", 3, 42, "dropped"})

	assert.Equal(t, map[string]interface{}{"now": "later", "entries": 3}, fields)
}
