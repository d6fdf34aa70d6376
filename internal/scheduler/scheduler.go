package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "StockPulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// MinInterval is the smallest supported tick interval.
const MinInterval = time.Second

// Job is one tick. Its error is logged and otherwise ignored.
type Job func(ctx context.Context) error

// Scheduler runs a Job at a fixed interval. A tick that is still running when
// the next one is due causes that next one to be skipped, so ticks never overlap.
type Scheduler struct {
	name   string
	logger *applogger.Logger
	cron   *cron.Cron
	job    cron.Job

	mu       sync.Mutex
	interval time.Duration
	entry    cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	stopping bool
	manual   sync.WaitGroup // ticks started by RunNow
}

// New creates a stopped scheduler.
func New(name string, interval time.Duration, job Job, logger *applogger.Logger) (*Scheduler, error) {
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	s := &Scheduler{
		name:     name,
		logger:   logger.With(applogger.String("scheduler", name)),
		interval: interval,
		ctx:      context.Background(),
	}
	cl := cronLogger{s.logger}
	s.cron = cron.New(cron.WithLogger(cl))
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		s.run(job)
	}))
	return s, nil
}

func checkInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("interval %s is below %s", d, MinInterval)
	}
	return nil
}

func (s *Scheduler) run(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Debug("tick finished with error", applogger.Error(err), applogger.Duration("duration_ms", time.Since(start)))
		return
	}
	s.logger.Debug("tick finished", applogger.Duration("duration_ms", time.Since(start)))
}

// Start schedules the job and starts the cron loop. ctx is handed to every tick.
// The first tick happens one interval after Start; call RunNow for an immediate one.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.entry = s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", applogger.Duration("interval_ms", s.interval))
}

// Stop stops scheduling, cancels the tick context and waits for running ticks,
// including those started by RunNow, until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	if running {
		s.running = false
		s.cron.Remove(s.entry)
	}
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.stopping = false
		s.mu.Unlock()
	}()

	idle := make(chan struct{})
	go func() {
		if running {
			<-s.cron.Stop().Done()
		}
		s.manual.Wait()
		close(idle)
	}()
	if cancel != nil {
		cancel()
	}
	select {
	case <-idle:
		if running {
			s.logger.Info("scheduler stopped")
		}
		return nil
	case <-ctx.Done():
		return errors.New("scheduler stop: timed out waiting for running tick")
	}
}

// Reschedule changes the interval. It takes effect from the next tick.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	if err := checkInterval(interval); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval == s.interval {
		return nil
	}
	s.interval = interval
	if s.running {
		s.cron.Remove(s.entry)
		s.entry = s.cron.Schedule(cron.Every(interval), s.job)
	}
	s.logger.Info("scheduler interval changed", applogger.Duration("interval_ms", interval))
	return nil
}

// Interval is the current tick interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// RunNow runs one tick synchronously, unless a tick is already running, in
// which case it returns at once. It does nothing while Stop is in progress.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.manual.Add(1)
	s.mu.Unlock()
	defer s.manual.Done()
	s.job.Run()
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
