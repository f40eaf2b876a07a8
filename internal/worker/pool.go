// Package worker runs fire-and-forget background jobs on a fixed set of
// goroutines with a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of background work. The context carries the pool's
// per-job timeout and is cancelled on forced shutdown.
type Job func(ctx context.Context) error

// JobRecorder receives job outcomes. *metrics.Metrics satisfies it.
type JobRecorder interface {
	RecordJob(job, outcome string)
}

type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

var ErrPoolClosed = errors.New("worker pool is closed")

type jobWrapper struct {
	name string
	fn   Job
}

type Pool struct {
	jobs     chan jobWrapper
	timeout  time.Duration
	logger   *slog.Logger
	recorder JobRecorder

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(cfg Config, logger *slog.Logger, recorder JobRecorder) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:     make(chan jobWrapper, cfg.QueueSize),
		timeout:  cfg.JobTimeout,
		logger:   logger,
		recorder: recorder,
		baseCtx:  ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job jobWrapper) {
	ctx := p.baseCtx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Background job panicked", "job", job.name, "panic", fmt.Sprint(r))
			p.record(job.name, "panic")
		}
	}()

	if err := job.fn(ctx); err != nil {
		p.logger.Error("Background job failed", "job", job.name, "error", err)
		p.record(job.name, "error")
		return
	}
	p.record(job.name, "ok")
}

func (p *Pool) record(job, outcome string) {
	if p.recorder != nil {
		p.recorder.RecordJob(job, outcome)
	}
}

// TrySubmit enqueues without blocking. It returns false when the queue is
// full or the pool is shutting down; the job is dropped in both cases.
func (p *Pool) TrySubmit(name string, fn Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.record(name, "rejected")
		return false
	}

	select {
	case p.jobs <- jobWrapper{name: name, fn: fn}:
		return true
	default:
		p.logger.Warn("Background queue full, dropping job", "job", name)
		p.record(name, "dropped")
		return false
	}
}

// Submit blocks until the job is queued or ctx is done.
func (p *Pool) Submit(ctx context.Context, name string, fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- jobWrapper{name: name, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx
// expires first, running jobs see their context cancelled and Shutdown
// returns without waiting for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
