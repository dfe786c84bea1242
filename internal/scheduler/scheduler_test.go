package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nba-projections/pkg/logger"
)

func testLog() *logrus.Entry {
	return logrus.NewEntry(logger.Discard())
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("not a schedule", 0, func(context.Context) error { return nil }, testLog())
	assert.Error(t, err)
}

func TestTriggerRecordsStatus(t *testing.T) {
	calls := 0
	s, err := New("0 14 * * *", 0, func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("boom")
		}
		return nil
	}, testLog())
	require.NoError(t, err)

	require.NoError(t, s.Trigger(context.Background()))
	assert.Error(t, s.Trigger(context.Background()))

	st := s.Status()
	assert.Equal(t, 2, st.RunCount)
	assert.Equal(t, 1, st.ErrorCount)
	assert.Equal(t, "boom", st.LastError)
	assert.False(t, st.Running)
	assert.Equal(t, "0 14 * * *", st.Schedule)
}

func TestTriggerAppliesTimeout(t *testing.T) {
	s, err := New("@daily", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, testLog())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Trigger(context.Background()), context.DeadlineExceeded)
}

func TestScheduledRuns(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", 0, func(context.Context) error {
		runs.Add(1)
		return nil
	}, testLog())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.False(t, s.Status().NextRun.IsZero())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	s, err := New("@every 1s", 0, func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}, testLog())
	require.NoError(t, err)

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	assert.Equal(t, context.Canceled.Error(), s.Status().LastError)
}
