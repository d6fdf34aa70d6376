package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsShortInterval(t *testing.T) {
	_, err := New("t", 500*time.Millisecond, func(context.Context) error { return nil }, nil)
	assert.Error(t, err)
}

func TestRunNowRunsSynchronously(t *testing.T) {
	var n int32
	s, err := New("t", time.Minute, func(context.Context) error {
		atomic.AddInt32(&n, 1)
		return errors.New("ignored")
	}, nil)
	require.NoError(t, err)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), atomic.LoadInt32(&n))
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var n int32
	s, err := New("t", time.Minute, func(context.Context) error {
		if atomic.AddInt32(&n, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow()
	}()
	<-started
	s.RunNow()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestRunNowRecoversPanics(t *testing.T) {
	s, err := New("t", time.Minute, func(context.Context) error { panic("tick blew up") }, nil)
	require.NoError(t, err)
	assert.NotPanics(t, s.RunNow)
}

func TestStartTicksAndStop(t *testing.T) {
	var n int32
	var gotCtx atomic.Value
	s, err := New("t", time.Second, func(ctx context.Context) error {
		gotCtx.Store(ctx)
		atomic.AddInt32(&n, 1)
		return nil
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 1 }, 4*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	tickCtx := gotCtx.Load().(context.Context)
	assert.Error(t, tickCtx.Err(), "tick context is cancelled on stop")
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestReschedule(t *testing.T) {
	s, err := New("t", 30*time.Second, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	assert.Error(t, s.Reschedule(0))
	assert.Equal(t, 30*time.Second, s.Interval())

	s.Start(context.Background())
	defer func() { _ = s.Stop(context.Background()) }()

	require.NoError(t, s.Reschedule(10*time.Second))
	assert.Equal(t, 10*time.Second, s.Interval())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestStopWaitsForRunNowTick(t *testing.T) {
	started := make(chan struct{})
	var finished int32
	s, err := New("t", time.Minute, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	go s.RunNow()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished), "stop returned before the tick ended")
}

func TestStopTimesOutOnStuckRunNowTick(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	s, err := New("t", time.Minute, func(context.Context) error {
		close(started)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	go s.RunNow()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Stop(ctx))
}
