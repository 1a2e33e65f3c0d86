package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"openair-backend/internal/metrics"
)

// Task is one poll. The context is cancelled once the poll interval has elapsed.
type Task func(ctx context.Context)

// Poller runs a Task immediately and then on a fixed ticker. Every tick gets its
// own goroutine, so a slow task never delays the next one.
type Poller struct {
	Name     string
	Interval time.Duration
	Task     Task

	logger  *zap.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a poller. m may be nil.
func New(name string, interval time.Duration, task Task, logger *zap.Logger, m *metrics.Collector) *Poller {
	return &Poller{
		Name:     name,
		Interval: interval,
		Task:     task,
		logger:   logger.With(zap.String("poller", name)),
		metrics:  m,
	}
}

// Start launches the loop in the background. It is a no-op if already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.running = true
	go func() {
		defer close(p.done)
		p.Run(ctx)
	}()
}

// Stop cancels the loop and waits until every in-flight task has returned.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Run blocks until ctx is cancelled and all ticks it started have finished.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting poller", zap.Duration("interval", p.Interval))

	var wg sync.WaitGroup
	defer wg.Wait()

	p.tick(ctx, &wg)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller shutting down")
			return
		case <-ticker.C:
			p.tick(ctx, &wg)
		}
	}
}

func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup) {
	if p.metrics != nil {
		p.metrics.PollTicks.WithLabelValues(p.Name).Inc()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		tctx, cancel := context.WithTimeout(ctx, p.Interval)
		defer cancel()
		p.Task(tctx)
	}()
}
