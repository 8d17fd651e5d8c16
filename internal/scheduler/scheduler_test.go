package scheduler_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwatch/internal/models"
	"groundwatch/internal/observability"
	"groundwatch/internal/scheduler"
)

// blockingRunner parks inside Run until released, so tests can hold the
// scheduler in its Running state.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	runs int
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context) models.CycleReport {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	r.started <- struct{}{}

	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return models.CycleReport{DistrictsProcessed: 1}
}

func (r *blockingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// countingRunner completes immediately.
type countingRunner struct {
	mu   sync.Mutex
	runs int
	done chan struct{}
}

func (r *countingRunner) Run(_ context.Context) models.CycleReport {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return models.CycleReport{}
}

func (r *countingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func newScheduler(r scheduler.Runner, clock clockwork.Clock) *scheduler.Scheduler {
	return scheduler.New(r, 30*time.Minute, time.Minute, clock, slog.Default(), observability.NewMetricsForTesting())
}

func TestTriggerNow_RunsOneCycle(t *testing.T) {
	runner := &countingRunner{}
	s := newScheduler(runner, clockwork.NewRealClock())

	report, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CycleReport{}, report)
	assert.Equal(t, 1, runner.runCount())
}

func TestTriggerNow_RejectedWhileRunning(t *testing.T) {
	runner := newBlockingRunner()
	s := newScheduler(runner, clockwork.NewRealClock())

	firstDone := make(chan models.CycleReport, 1)
	go func() {
		report, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
		firstDone <- report
	}()

	// Wait until the first cycle is actually in flight.
	<-runner.started

	_, err := s.TriggerNow(context.Background())
	require.ErrorIs(t, err, scheduler.ErrCycleRunning)

	// The first cycle completes normally despite the rejected trigger.
	close(runner.release)
	report := <-firstDone
	assert.Equal(t, 1, report.DistrictsProcessed)
	assert.Equal(t, 1, runner.runCount())
}

func TestRun_InitialCycleAndTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &countingRunner{done: make(chan struct{}, 16)}
	s := newScheduler(runner, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	// Initial cycle fires without any tick.
	<-runner.done
	assert.Equal(t, 1, runner.runCount())

	// Each interval elapsed triggers exactly one more cycle.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Minute)
	<-runner.done
	assert.Equal(t, 2, runner.runCount())

	clock.Advance(30 * time.Minute)
	<-runner.done
	assert.Equal(t, 3, runner.runCount())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &countingRunner{done: make(chan struct{}, 16)}
	s := newScheduler(runner, clock)

	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	<-runner.done
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
