package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

// TaskTypeAnalyze routes analysis tasks on the asynq mux.
const TaskTypeAnalyze = "paystub:analyze"

// AsynqConfig configures the Redis-backed queue.
type AsynqConfig struct {
	RedisURL    string
	Queue       string
	Concurrency int
	MaxRetry    int
	Timeout     time.Duration
}

func (c AsynqConfig) withDefaults() AsynqConfig {
	if c.Queue == "" {
		c.Queue = "paystub"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Minute
	}
	return c
}

// AsynqQueue enqueues jobs to Redis and, once started, consumes them with
// an asynq server in the same process. Several paystubd instances can share
// one Redis and split the work.
type AsynqQueue struct {
	cfg    AsynqConfig
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewAsynqQueue(cfg AsynqConfig, runner Runner, logger *slog.Logger) (*AsynqQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "invalid queue redis url", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 10},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			delay := time.Duration(5*(1<<uint(n))) * time.Second
			if delay > time.Minute {
				delay = time.Minute
			}
			return delay
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn("queue.task.error", "type", task.Type(), "error", err)
		}),
		Logger:   asynqLogger{logger: logger.With("component", "asynq")},
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeAnalyze, NewTaskHandler(runner, cfg.Timeout, logger))

	return &AsynqQueue{
		cfg:    cfg,
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    mux,
		logger: logger,
	}, nil
}

// Start begins consuming tasks in the background.
func (q *AsynqQueue) Start() error {
	q.logger.Info("queue.asynq.start", "queue", q.cfg.Queue, "concurrency", q.cfg.Concurrency)
	return q.server.Start(q.mux)
}

// NewAnalyzeTask encodes a job as an asynq task.
func NewAnalyzeTask(job Job, cfg AsynqConfig) (*asynq.Task, error) {
	cfg = cfg.withDefaults()
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", job.Request.AnalysisID, err)
	}
	return asynq.NewTask(TaskTypeAnalyze, payload,
		asynq.TaskID(job.Request.AnalysisID),
		asynq.Queue(cfg.Queue),
		asynq.MaxRetry(cfg.MaxRetry),
		asynq.Timeout(cfg.Timeout),
	), nil
}

func (q *AsynqQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	task, err := NewAnalyzeTask(job, q.cfg)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return common.InvalidInput("analysis %s is already queued", job.Request.AnalysisID)
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Request.AnalysisID, err)
	}
	q.logger.Debug("queue.enqueued", "analysis_id", job.Request.AnalysisID, "queue", info.Queue, "task_id", info.ID)
	return nil
}

// Shutdown stops the server, waiting for in-flight tasks up to asynq's own
// shutdown timeout.
func (q *AsynqQueue) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.server.Shutdown()
	}()
	select {
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	}
	if err := q.client.Close(); err != nil {
		q.logger.Warn("queue.client.close", "error", err)
	}
}

// TaskHandler runs analysis tasks pulled from Redis.
type TaskHandler struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

func NewTaskHandler(runner Runner, timeout time.Duration, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{runner: runner, timeout: timeout, logger: logger}
}

// ProcessTask never asks asynq to retry a failed analysis: the processor
// has already stored a terminal status. Retries only cover lost workers.
func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("decode job: %v: %w", err, asynq.SkipRetry)
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	report, err := h.runner.Run(ctx, job.Request)
	if err != nil {
		h.logger.Warn("queue.job.failed", "analysis_id", job.Request.AnalysisID, "code", common.ErrorCode(err), "error", err)
		return fmt.Errorf("analysis %s: %v: %w", job.Request.AnalysisID, err, asynq.SkipRetry)
	}
	h.logger.Info("queue.job.done",
		"analysis_id", job.Request.AnalysisID,
		"violations", len(report.Violations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
