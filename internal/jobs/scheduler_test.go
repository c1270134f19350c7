package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Execute(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunByName(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := &countingJob{name: "on-demand"}
	require.NoError(t, s.Register(job))

	require.NoError(t, s.RunByName(context.Background(), "on-demand"))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, []string{"on-demand"}, s.Registered())

	assert.Error(t, s.RunByName(context.Background(), "missing"))
}

func TestScheduler_RunByNamePropagatesError(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.Register(&countingJob{name: "broken", err: errors.New("boom")}))

	assert.EqualError(t, s.RunByName(context.Background(), "broken"), "boom")
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	assert.Error(t, s.Register(&countingJob{name: "bad", schedule: "every tuesday"}))
}

func TestScheduler_RunsScheduledJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := &countingJob{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.Register(job))

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
