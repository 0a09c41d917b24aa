package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddAndRemove(t *testing.T) {
	s := New(zerolog.Nop())

	id, err := s.AddJob("@every 15m", &countingJob{})
	require.NoError(t, err)
	assert.True(t, s.Has(id))
	assert.Equal(t, 1, s.Len())

	s.Remove(id)
	assert.False(t, s.Has(id))
	assert.Equal(t, 0, s.Len())

	// Removing twice is harmless
	s.Remove(id)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	_, err := s.AddFunc("not a schedule", "bad", func() {})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_RunsEntries(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("failure is logged, not fatal")}

	_, err := s.AddJob("@every 1s", job)
	require.NoError(t, err)

	s.Start()
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := New(zerolog.Nop())
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}
