package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	err      error
	ran      chan struct{}
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return j.err
}

func newFakeJob(name string) *fakeJob {
	return &fakeJob{name: name, schedule: "0 0 3 * * *", ran: make(chan struct{}, 8)}
}

func TestAddJob_RejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(newFakeJob("collect")))
	assert.Error(t, s.AddJob(newFakeJob("collect")))
	assert.ElementsMatch(t, []string{"collect"}, s.Jobs())
}

func TestAddJob_RejectsBadCronExpression(t *testing.T) {
	s := New(logger.NewNop())

	job := newFakeJob("broken")
	job.schedule = "not a cron spec"
	assert.Error(t, s.AddJob(job))
}

func TestRunJob_ExecutesAndRecordsHistory(t *testing.T) {
	s := New(logger.NewNop())

	job := newFakeJob("evaluate")
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunJob("evaluate"))

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	// History is written after Run returns.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history, err := s.History("evaluate")
		require.NoError(t, err)
		if result, ok := history.Latest(); ok {
			assert.True(t, result.Success)
			assert.Equal(t, "evaluate", result.JobName)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no history recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistory_BoundedAndRated(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.01)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.False(t, latest.Success)
}

func TestJobHistory_Empty(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Zero(t, h.SuccessRate())
}

var _ Job = (*fakeJob)(nil)
