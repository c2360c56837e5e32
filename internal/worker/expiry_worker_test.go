package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int
	err   error
}

func (f *fakeExpirer) ExpireStaleBookings(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSweepAccumulatesStats(t *testing.T) {
	exp := &fakeExpirer{n: 2}
	w := NewExpiryWorker(exp, time.Minute, nil)
	fixed := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	assert.Equal(t, 2, w.Sweep(context.Background()))
	assert.Equal(t, 2, w.Sweep(context.Background()))

	st := w.Stats()
	assert.Equal(t, int64(4), st.TotalExpired)
	assert.Equal(t, fixed, st.LastScanTime)
	assert.NoError(t, st.LastError)
	assert.False(t, st.Running)
	assert.Equal(t, []time.Time{fixed, fixed}, exp.calls)
}

func TestSweepRecordsError(t *testing.T) {
	boom := errors.New("db down")
	w := NewExpiryWorker(&fakeExpirer{n: 5, err: boom}, time.Minute, nil)

	assert.Equal(t, 0, w.Sweep(context.Background()))
	st := w.Stats()
	assert.ErrorIs(t, st.LastError, boom)
	assert.Zero(t, st.TotalExpired)
}

func TestStartSweepsUntilStopped(t *testing.T) {
	exp := &fakeExpirer{n: 1}
	w := NewExpiryWorker(exp, 10*time.Millisecond, nil)

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return exp.count() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.Stats().Running)

	w.Stop()
	stopped := exp.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, exp.count())
	assert.False(t, w.Stats().Running)
	w.Stop()
}

func TestNonPositiveIntervalDefaults(t *testing.T) {
	w := NewExpiryWorker(&fakeExpirer{}, 0, nil)
	assert.Equal(t, time.Minute, w.interval)
}
