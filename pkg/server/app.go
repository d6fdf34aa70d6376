package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"StockPulse/internal/scheduler"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
)

// Runner is a background loop that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle: one scheduler driving the
// ticks plus whatever HTTP server, consumer and feeds the binary needs.
type App struct {
	name            string
	logger          *applogger.Logger
	scheduler       *scheduler.Scheduler
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	consumerHandler pkgkafka.MessageHandler
	runners         []Runner
	starters        []func(ctx context.Context) error
	closers         []namedCloser
	shutdownTimeout time.Duration
	signals         []os.Signal
}

// Option configures App.
type Option func(*App)

// WithHTTPServer serves s for the lifetime of the app.
func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

// WithConsumer registers h on c and runs c for the lifetime of the app.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.consumerHandler = h
	}
}

// WithRunner runs r in the background until shutdown.
func WithRunner(r Runner) Option {
	return func(a *App) {
		if r != nil {
			a.runners = append(a.runners, r)
		}
	}
}

// WithStarter runs fn before the first tick. A starter error aborts Run.
func WithStarter(fn func(ctx context.Context) error) Option {
	return func(a *App) { a.starters = append(a.starters, fn) }
}

// WithCloser closes c on shutdown. Closers run in reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// WithShutdownTimeout bounds the graceful stop of every component.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates a new App instance with all dependencies.
func New(name string, logger *applogger.Logger, sched *scheduler.Scheduler, opts ...Option) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	a := &App{
		name:            name,
		logger:          logger.With(applogger.String("app", name)),
		scheduler:       sched,
		shutdownTimeout: 10 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until ctx is done or an interrupt
// arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	for _, start := range a.starters {
		if err := start(ctx); err != nil {
			a.closeAll()
			return err
		}
	}

	var wg sync.WaitGroup
	for _, r := range a.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("runner stopped with error", applogger.Error(err))
			}
		}(r)
	}

	if a.consumer != nil && a.consumerHandler != nil {
		a.consumer.RegisterHandler(a.consumerHandler)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			return a.shutdown(stop, &wg, err)
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			return a.shutdown(stop, &wg, err)
		}
	}

	a.scheduler.Start(ctx)
	go a.scheduler.RunNow()
	a.logger.Info("started", applogger.Duration("interval_ms", a.scheduler.Interval()))

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown(stop, &wg, nil)
}

// shutdown stops ticking first so no tick races the teardown of what it uses.
func (a *App) shutdown(stop context.CancelFunc, wg *sync.WaitGroup, cause error) error {
	stop()
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Warn("scheduler stop error", applogger.Error(err))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("runners did not stop in time")
	}

	a.closeAll()
	a.logger.Info("shutdown complete")
	return cause
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}
}
