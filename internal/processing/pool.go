// Package processing runs export tasks on a local goroutine pool. It lets the
// API process exports without Redis: the pool satisfies queue.Enqueuer and
// hands each task to the same asynq.Handler the worker binary uses.
package processing

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

var (
	// ErrQueueFull is returned by EnqueueContext when the buffer is full.
	ErrQueueFull = errors.New("processing queue full")
	// ErrStopped is returned by EnqueueContext once the pool is shutting down.
	ErrStopped = errors.New("processing pool stopped")
)

// AbandonFunc is called for every task still buffered when the pool stops.
type AbandonFunc func(ctx context.Context, task *asynq.Task)

// Option customises a Pool.
type Option func(*Pool)

// WithAbandon registers the callback for tasks left over at shutdown.
func WithAbandon(fn AbandonFunc) Option {
	return func(p *Pool) { p.abandon = fn }
}

// Pool consumes tasks with a fixed number of goroutines.
type Pool struct {
	handler asynq.Handler
	abandon AbandonFunc
	queue   chan *asynq.Task
	workers int
	logger  *zerolog.Logger
	seq     atomic.Int64
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// New builds a Pool with queue capacity tied to worker count.
func New(handler asynq.Handler, workers int, logger *zerolog.Logger, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		handler: handler,
		// make(chan T, N) creates a buffered channel that can hold N messages
		// without blocking producers, keeping the API responsive.
		queue:   make(chan *asynq.Task, workers*4),
		workers: workers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches worker goroutines. When ctx is cancelled they stop taking
// work, hand any buffered tasks to the abandon callback and exit.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() { p.wg.Wait() }

// EnqueueContext queues a task. Options such as MaxRetry are accepted for
// interface compatibility but ignored: each task runs once.
func (p *Pool) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrStopped
	}
	select {
	case p.queue <- task:
	default:
		p.logger.Warn().Str("type", task.Type()).Msg("processing queue full, rejecting task")
		return nil, ErrQueueFull
	}
	id := p.seq.Add(1)
	return &asynq.TaskInfo{
		ID:      "local-" + strconv.FormatInt(id, 10),
		Queue:   "inprocess",
		Type:    task.Type(),
		Payload: task.Payload(),
		State:   asynq.TaskStatePending,
	}, nil
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			p.drain(ctx)
			return
		}
		select {
		case <-ctx.Done():
			p.drain(ctx)
			return
		case task := <-p.queue:
			if err := p.handler.ProcessTask(ctx, task); err != nil {
				p.logger.Error().Err(err).Str("type", task.Type()).Msg("task failed")
			}
		}
	}
}

// drain closes the pool to new tasks and abandons what is still buffered.
func (p *Pool) drain(ctx context.Context) {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	abandonCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for {
		select {
		case task := <-p.queue:
			p.logger.Warn().Str("type", task.Type()).Msg("abandoning task at shutdown")
			if p.abandon != nil {
				p.abandon(abandonCtx, task)
			}
		default:
			return
		}
	}
}
