package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a queued background task. Jobs sharing a non-empty Key are coalesced: while one
// is queued further enqueues are absorbed, and while one is running a single follow-up
// run is scheduled for after it finishes.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ResultHook observes the final outcome of every job.
type ResultHook func(job Job, err error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	OnResult   ResultHook
}

// Queue is an in-memory job dispatcher backed by a fixed set of goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onResult   ResultHook

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending map[string]keyState
}

type keyState int

const (
	keyQueued keyState = iota
	keyRunning
	keyRerun
)

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		onResult:   cfg.OnResult,
		jobs:       make(chan Job, cfg.BufferSize),
		pending:    make(map[string]keyState),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue pushes a job onto the queue. It reports false when a pending job with the same
// key absorbed it.
func (q *Queue) Enqueue(job Job) (bool, error) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return false, fmt.Errorf("queue %s not started", q.name)
	}
	if job.Key != "" {
		if state, ok := q.pending[job.Key]; ok {
			if state == keyRunning {
				q.pending[job.Key] = keyRerun
			}
			q.mu.Unlock()
			return false, nil
		}
		q.pending[job.Key] = keyQueued
	}
	ctx := q.ctx
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	if err := q.push(ctx, job); err != nil {
		q.release(job)
		return false, err
	}
	return true, nil
}

func (q *Queue) push(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) release(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, job.Key)
	q.mu.Unlock()
}

// Pending reports whether a job with key is queued or running.
func (q *Queue) Pending(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.markRunning(job)
			err := q.handler(q.ctx, job)
			if err != nil && job.Attempt < q.maxRetries {
				q.retry(job, err)
				continue
			}
			q.finish(job, err)
		}
	}
}

func (q *Queue) markRunning(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	if q.pending[job.Key] == keyQueued {
		q.pending[job.Key] = keyRunning
	}
	q.mu.Unlock()
}

// settle moves a finished key back to queued when a rerun was requested, or clears it.
// It reports whether a rerun is due.
func (q *Queue) settle(job Job) bool {
	if job.Key == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[job.Key] == keyRerun {
		q.pending[job.Key] = keyQueued
		return true
	}
	delete(q.pending, job.Key)
	return false
}

func (q *Queue) finish(job Job, err error) {
	rerun := q.settle(job)
	if err != nil {
		q.logger.Error("job exceeded retries", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
	}
	if q.onResult != nil {
		q.onResult(job, err)
	}
	if rerun {
		next := job
		next.Attempt = 0
		next.Enqueued = time.Now().UTC()
		go func() {
			if err := q.push(q.ctx, next); err != nil {
				q.release(next)
			}
		}()
	}
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	if job.Key != "" {
		q.mu.Lock()
		q.pending[job.Key] = keyQueued
		q.mu.Unlock()
	}
	q.logger.Warn("job failed, retrying", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.release(j)
			return
		case <-timer.C:
			if err := q.push(q.ctx, j); err != nil {
				q.release(j)
				q.logger.Error("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
