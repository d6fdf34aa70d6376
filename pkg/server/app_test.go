package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockPulse/internal/scheduler"
	"StockPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	name  string
	mu    *sync.Mutex
	order *[]string
}

func (c recordingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.order = append(*c.order, c.name)
	return nil
}

type blockingRunner struct {
	started chan struct{}
	stopped atomic.Bool
}

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	r.stopped.Store(true)
	return ctx.Err()
}

func TestRunTicksImmediatelyAndShutsDownInOrder(t *testing.T) {
	var ticks atomic.Int32
	sched, err := scheduler.New("test", time.Hour, func(context.Context) error {
		ticks.Add(1)
		return nil
	}, logger.Nop())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	runner := &blockingRunner{started: make(chan struct{})}
	var started atomic.Bool

	app := New("test", logger.Nop(), sched,
		WithRunner(runner),
		WithStarter(func(context.Context) error {
			started.Store(true)
			return nil
		}),
		WithCloser("first", recordingCloser{name: "first", mu: &mu, order: &order}),
		WithCloser("second", recordingCloser{name: "second", mu: &mu, order: &order}),
		WithShutdownTimeout(2*time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	<-runner.started
	assert.Eventually(t, func() bool { return ticks.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, started.Load())
	assert.True(t, runner.stopped.Load())
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRunStarterErrorAborts(t *testing.T) {
	sched, err := scheduler.New("test", time.Hour, func(context.Context) error { return nil }, logger.Nop())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	boom := errors.New("watch failed")
	app := New("test", logger.Nop(), sched,
		WithStarter(func(context.Context) error { return boom }),
		WithCloser("db", recordingCloser{name: "db", mu: &mu, order: &order}),
	)
	assert.ErrorIs(t, app.Run(context.Background()), boom)
	assert.Equal(t, []string{"db"}, order)
}
