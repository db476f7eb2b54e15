package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProcessorQueue runs analyses on a fixed pool of in-process workers.
type ProcessorQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(runner Runner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	id := job.Request.AnalysisID
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	report, err := q.runner.Run(ctx, job.Request)
	if err != nil {
		// the processor has already stored the failure
		q.logger.Warn("queue.job.failed", "worker_id", workerID, "analysis_id", id, "error", err)
		return
	}
	q.logger.Info("queue.job.done",
		"worker_id", workerID,
		"analysis_id", id,
		"violations", len(report.Violations),
		"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "analysis_id", job.Request.AnalysisID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "analysis_id", job.Request.AnalysisID, "depth", len(q.ch))
		return nil
	default:
	}
	q.logger.Warn("queue.full", "analysis_id", job.Request.AnalysisID, "capacity", cap(q.ch))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth is the number of jobs waiting for a worker.
func (q *ProcessorQueue) Depth() int { return len(q.ch) }

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
