package usecase

import (
	"context"
	"errors"
	"sync"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/metrics"
)

// scriptedSource replays results in order, then repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []models.FetchResult
	calls   []string
	watched []string
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Latest(_ context.Context, symbol string) models.FetchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, symbol)
	if len(s.results) == 0 {
		return models.PriceEmpty()
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r
}

type watchingSource struct {
	scriptedSource
	err error
}

func (s *watchingSource) Watch(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = append(s.watched, symbol)
	return s.err
}

type recordingPresenter struct {
	mu       sync.Mutex
	frames   []models.Frame
	statuses []string
}

func (p *recordingPresenter) Render(_ context.Context, f models.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
}

func (p *recordingPresenter) Status(_ context.Context, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
}

func (p *recordingPresenter) lastFrame() models.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames[len(p.frames)-1]
}

func (p *recordingPresenter) lastStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statuses[len(p.statuses)-1]
}

type memArchive struct {
	recs []models.ArchiveRecord
	err  error
}

func (a *memArchive) Record(_ context.Context, r models.ArchiveRecord) error {
	if a.err != nil {
		return a.err
	}
	a.recs = append(a.recs, r)
	return nil
}

func (a *memArchive) Close() error { return nil }

type memPublisher struct {
	events []models.PriceEvent
	err    error
	closed bool
}

func (p *memPublisher) Publish(_ context.Context, ev models.PriceEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) Close() error {
	p.closed = true
	return nil
}

var errBoom = errors.New("boom")

var nopMetrics = metrics.Nop{}

// gatedSource blocks each Latest call until release is closed.
type gatedSource struct {
	entered chan string
	release chan struct{}
	price   float64
}

func newGatedSource(price float64) *gatedSource {
	return &gatedSource{entered: make(chan string, 1), release: make(chan struct{}), price: price}
}

func (s *gatedSource) Name() string { return "gated" }

func (s *gatedSource) Latest(ctx context.Context, symbol string) models.FetchResult {
	s.entered <- symbol
	select {
	case <-s.release:
		return models.PriceOK(s.price)
	case <-ctx.Done():
		return models.PriceFailed(ctx.Err())
	}
}
