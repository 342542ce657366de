package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/services"
	"silverpulse/internal/shared/testutil"
	"silverpulse/pkg/contracts/domain"
)

type recordingRefresher struct {
	mu       sync.Mutex
	triggers []string
	err      error
	deadline bool
}

func (r *recordingRefresher) Refresh(ctx context.Context, force bool, trigger string) (*domain.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, trigger)
	_, r.deadline = ctx.Deadline()
	if r.err != nil {
		return nil, r.err
	}
	return &domain.AppState{CycleID: "cycle"}, nil
}

func (r *recordingRefresher) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.triggers...)
}

func TestScheduler_RunOnStart(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	ref := &recordingRefresher{}
	s := New(ref, time.Minute, logger)

	require.NoError(t, s.Start("@every 1h", true))
	require.Eventually(t, func() bool { return len(ref.calls()) == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, []string{services.TriggerStartup}, ref.calls())
	assert.True(t, ref.deadline)
	testutil.AssertLogContains(t, handler, "Scheduled refresh completed")
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	ref := &recordingRefresher{}
	s := New(ref, time.Minute, logger)

	require.NoError(t, s.Start("@every 1s", false))
	defer s.Stop()

	assert.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool { return len(ref.calls()) >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, services.TriggerSchedule, ref.calls()[0])
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	s := New(&recordingRefresher{}, time.Minute, logger)

	err := s.Start("not a schedule", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh schedule")
	assert.True(t, s.Next().IsZero())
}

func TestScheduler_DoubleStartAndStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	s := New(&recordingRefresher{}, time.Minute, logger)

	require.NoError(t, s.Start("@every 1h", false))
	assert.Error(t, s.Start("@every 1h", false))
	s.Stop()
	assert.NotPanics(t, s.Stop)
}

func TestScheduler_LogsFailures(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	ref := &recordingRefresher{err: errors.New("upstream down")}
	s := New(ref, time.Minute, logger)

	require.NoError(t, s.Start("@every 1h", true))
	require.Eventually(t, func() bool { return len(ref.calls()) == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()

	testutil.AssertLogContains(t, handler, "Scheduled refresh failed")
}
