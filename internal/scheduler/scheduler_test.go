package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hkjc-advisor/internal/logger"
)

type fakeCache struct {
	sweeps atomic.Int32
}

func (f *fakeCache) DeleteExpired() { f.sweeps.Add(1) }

func (f *fakeCache) ItemCount() int { return 0 }

func (f *fakeCache) Stats() (uint64, uint64, float64) { return 0, 0, 0 }

// TestSchedulerLifecycle tests scheduling, starting and stopping
func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(logger.Discard())

	assert.Error(t, s.Start(), "start without jobs")

	require.NoError(t, s.ScheduleCacheMaintenance("@every 1h", &fakeCache{}))
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Len(t, s.jobIDs, 1)
	assert.False(t, s.GetNextRun().IsZero())

	assert.Error(t, s.Start(), "start twice")
	assert.Error(t, s.schedule("@every 1h", "late", func() {}), "schedule while running")

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Stop())
}

// TestScheduleRejectsInvalidInput tests bad cron expressions and a missing cache
func TestScheduleRejectsInvalidInput(t *testing.T) {
	s := NewScheduler(logger.Discard())

	assert.Error(t, s.ScheduleCacheMaintenance("not a schedule", &fakeCache{}))
	assert.Error(t, s.ScheduleCacheMaintenance("@every 1m", nil))
	assert.Empty(t, s.jobIDs)
}

// TestCacheMaintenanceRuns tests that the sweep job fires and survives a panicking sibling
func TestCacheMaintenanceRuns(t *testing.T) {
	s := NewScheduler(logger.Discard())
	cache := &fakeCache{}

	require.NoError(t, s.ScheduleCacheMaintenance("@every 1s", cache))
	require.NoError(t, s.schedule("@every 1s", "panicky", func() { panic("boom") }))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return cache.sweeps.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
