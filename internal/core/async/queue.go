package async

import (
	"context"
	"errors"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Backends accepted in queue configuration.
const (
	BackendMemory = "memory"
	BackendAsynq  = "asynq"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("analysis queue is shut down")

// Job is one submitted analysis. The request must already be registered
// with the processor (core.Processor.Submit) so pollers see it as queued.
type Job struct {
	Request     core.AnalyzeRequest `json:"request"`
	SubmittedAt time.Time           `json:"submittedAt"`
	TraceID     string              `json:"traceId,omitempty"`
}

// Queue hands jobs to background workers.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Runner executes a submitted analysis. *core.Processor implements it.
type Runner interface {
	Run(ctx context.Context, req core.AnalyzeRequest) (entity.AnalysisReport, error)
}
