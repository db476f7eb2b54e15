package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/compliance"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/normalize"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/penalty"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/rules"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/validate"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/repository"
)

// AnalysisOptions override the configured penalty and scoring defaults
// for one analysis. Zero values fall back to the configuration.
type AnalysisOptions struct {
	PeriodMonths    int                     `json:"periodMonths,omitempty"`
	Method          constants.PenaltyMethod `json:"method,omitempty"`
	EmployerSize    constants.EmployerSize  `json:"employerSize,omitempty"`
	Industry        string                  `json:"industry,omitempty"`
	HistoricalScore *float64                `json:"historicalScore,omitempty"`
}

// AnalyzeRequest is one document to analyze.
type AnalyzeRequest struct {
	AnalysisID  string              `json:"analysisId,omitempty"`
	Document    []byte              `json:"document"`
	ContentType string              `json:"contentType"`
	Location    entity.LocationInfo `json:"location"`
	Options     AnalysisOptions     `json:"options"`
}

// Processor runs the pay-stub pipeline: OCR, normalization, validation,
// rule evaluation, then penalty and compliance scoring. Analyses share no
// mutable state beyond the status store and the cancel registry.
type Processor struct {
	logger      *slog.Logger
	coordinator *ocr.Coordinator
	policy      ocr.Policy
	normalizer  *normalize.Normalizer
	engine      *rules.Engine
	store       repository.AnalysisStore
	archive     repository.ReportArchive
	defaults    common.AnalysisConfig
	maxBytes    int64
	now         func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithArchive stores every completed report.
func WithArchive(a repository.ReportArchive) ProcessorOption {
	return func(p *Processor) { p.archive = a }
}

// WithEngine replaces the default rules engine.
func WithEngine(e *rules.Engine) ProcessorOption {
	return func(p *Processor) { p.engine = e }
}

// WithClock is used by tests.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor builds a processor from a configuration snapshot.
func NewProcessor(logger *slog.Logger, cfg common.Config, coordinator *ocr.Coordinator, store repository.AnalysisStore, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:      logger,
		coordinator: coordinator,
		policy:      ocr.PolicyFromConfig(cfg.OCR),
		normalizer:  normalize.New(logger),
		engine:      rules.New(),
		store:       store,
		defaults:    cfg.Analysis,
		maxBytes:    cfg.OCR.MaxDocumentBytes,
		now:         time.Now,
		running:     make(map[string]context.CancelFunc),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Engine returns the rules engine the processor evaluates with.
func (p *Processor) Engine() *rules.Engine { return p.engine }

// Normalizer returns the processor's field normalizer.
func (p *Processor) Normalizer() *normalize.Normalizer { return p.normalizer }

// Policy returns the OCR policy in effect.
func (p *Processor) Policy() ocr.Policy { return p.policy }

// Coordinator returns the OCR coordinator.
func (p *Processor) Coordinator() *ocr.Coordinator { return p.coordinator }

// Submit validates the document and registers a queued analysis. It
// assigns an analysis id when the request has none.
func (p *Processor) Submit(ctx context.Context, req *AnalyzeRequest) (entity.AnalysisState, error) {
	ct, err := ocr.ValidateDocument(req.Document, req.ContentType, p.maxBytes)
	if err != nil {
		return entity.AnalysisState{}, err
	}
	req.ContentType = ct
	if req.AnalysisID == "" {
		req.AnalysisID = uuid.NewString()
	}
	state, err := p.store.Create(ctx, req.AnalysisID)
	if err != nil {
		return entity.AnalysisState{}, err
	}
	common.LoggerFromContext(common.WithAnalysisID(ctx, req.AnalysisID), p.logger).
		Info("analysis.queued", "content_type", ct, "bytes", len(req.Document))
	return state, nil
}

// Analyze submits and runs one analysis synchronously.
func (p *Processor) Analyze(ctx context.Context, req AnalyzeRequest) (entity.AnalysisReport, error) {
	if _, err := p.Submit(ctx, &req); err != nil {
		return entity.AnalysisReport{}, err
	}
	return p.Run(ctx, req)
}

// Status returns what a poller sees for id.
func (p *Processor) Status(ctx context.Context, id string) (entity.AnalysisState, error) {
	return p.store.Get(ctx, id)
}

// Cancel stops an analysis. A running analysis has its context cancelled,
// which abandons pending provider calls; a queued one is marked failed so
// the worker that picks it up skips it. Finished analyses cannot be
// cancelled.
func (p *Processor) Cancel(ctx context.Context, id string) (entity.AnalysisState, error) {
	p.mu.Lock()
	cancel, running := p.running[id]
	p.mu.Unlock()

	state, err := p.store.Advance(ctx, id, repository.Update{
		Status:    constants.StatusFailed,
		Error:     common.ErrCancelled.Error(),
		ErrorCode: common.CodeCancelled,
	})
	if running {
		cancel()
	}
	if errors.Is(err, common.ErrInvalidTransition) {
		return state, common.InvalidInput("analysis %s already %s", id, state.Status)
	}
	if err != nil {
		return state, err
	}
	common.LoggerFromContext(common.WithAnalysisID(ctx, id), p.logger).Info("analysis.cancelled", "was_running", running)
	return state, nil
}

// Abort marks a submitted analysis failed without running it, e.g. when it
// could not be queued.
func (p *Processor) Abort(ctx context.Context, id string, cause error) {
	p.fail(ctx, common.LoggerFromContext(common.WithAnalysisID(ctx, id), p.logger), id, cause)
}

func (p *Processor) register(id string, cancel context.CancelFunc) {
	p.mu.Lock()
	p.running[id] = cancel
	p.mu.Unlock()
}

func (p *Processor) unregister(id string) {
	p.mu.Lock()
	delete(p.running, id)
	p.mu.Unlock()
}

// Run executes the pipeline for a submitted analysis. Every stage advances
// the stored status; a failure at any stage stores failed with the error
// code. A cancelled analysis never gets a report.
func (p *Processor) Run(ctx context.Context, req AnalyzeRequest) (entity.AnalysisReport, error) {
	id := req.AnalysisID
	ctx = common.WithAnalysisID(ctx, id)
	ctx, cancel := context.WithCancel(ctx)
	p.register(id, cancel)
	defer func() {
		p.unregister(id)
		cancel()
	}()
	logger := common.LoggerFromContext(ctx, p.logger)
	start := time.Now()

	report, err := p.run(ctx, logger, req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = common.NewAppError(common.CodeInternal, "analysis timed out", err)
		case ctx.Err() != nil:
			err = fmt.Errorf("analysis %s: %w", id, common.ErrCancelled)
		}
		p.fail(ctx, logger, id, err)
		return entity.AnalysisReport{}, err
	}
	logger.Info("analysis.completed",
		"violations", len(report.Violations),
		"score", report.Compliance.OverallScore,
		"total_recovery", report.Penalty.TotalRecovery,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (p *Processor) advance(ctx context.Context, id string, u repository.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.store.Advance(ctx, id, u); err != nil {
		// a concurrent Cancel already made the analysis terminal
		if errors.Is(err, common.ErrInvalidTransition) {
			return fmt.Errorf("analysis %s: %w", id, common.ErrCancelled)
		}
		return err
	}
	return nil
}

func (p *Processor) run(ctx context.Context, logger *slog.Logger, req AnalyzeRequest) (entity.AnalysisReport, error) {
	id := req.AnalysisID
	if err := p.advance(ctx, id, repository.Update{Status: constants.StatusOCRInProgress}); err != nil {
		return entity.AnalysisReport{}, err
	}

	ct, err := ocr.ValidateDocument(req.Document, req.ContentType, p.maxBytes)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	res, err := p.coordinator.Resolve(ctx, req.Document, ct, p.policy)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	raw := res.Result
	if raw.PageCount == 0 {
		raw.PageCount = ocr.PageCount(req.Document, ct)
	}

	record := p.normalizer.Normalize(raw.ExtractedText, raw.StructuredHints)
	record = validate.Annotate(record, raw.ExtractedText)
	logger.Debug("analysis.normalized",
		"provider", raw.Provider,
		"confidence", record.Quality.Confidence,
		"issues", len(record.Quality.Issues),
	)
	if err := p.advance(ctx, id, repository.Update{Status: constants.StatusNormalized}); err != nil {
		return entity.AnalysisReport{}, err
	}

	location := req.Location.WithDefaults()
	violations, err := p.engine.EvaluateChecked(record, location)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	minWage, _ := p.engine.ApplicableMinimumWage(location)

	breakdown, score, err := p.Score(ctx, violations, record, minWage, req.Options)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	if err := p.advance(ctx, id, repository.Update{Status: constants.StatusScored}); err != nil {
		return entity.AnalysisReport{}, err
	}

	report := entity.AnalysisReport{
		AnalysisID: id,
		Location:   location,
		OCR: entity.OCRSummary{
			Provider:           raw.Provider,
			Confidence:         raw.Confidence,
			CombinedConfidence: res.CombinedConfidence,
			PageCount:          raw.PageCount,
			ProvidersTried:     res.ProvidersTried(),
			ProviderErrors:     res.Errors(),
		},
		Record:             record,
		Violations:         violations,
		Summary:            rules.Summarize(violations),
		Penalty:            breakdown,
		Compliance:         score,
		RulesEngineVersion: rules.Version,
		AnalysisTimestamp:  p.now().UTC(),
	}

	if err := p.advance(ctx, id, repository.Update{Status: constants.StatusCompleted, Report: &report}); err != nil {
		return entity.AnalysisReport{}, err
	}
	// Only completed reports reach the archive. A Cancel racing with the
	// transition above still fires the context, so the save detaches from it.
	if p.archive != nil {
		if err := p.archive.Save(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("analysis.archive.failed", "error", err)
		}
	}
	return report, nil
}

// Score runs the penalty calculator and the compliance scorer side by side.
func (p *Processor) Score(ctx context.Context, violations []entity.Violation, record entity.NormalizedPayStubRecord, minWage float64, opts AnalysisOptions) (entity.PenaltyBreakdown, entity.ComplianceScore, error) {
	opts = p.withDefaults(opts)
	wc := entity.WageContext{
		HourlyRate:    record.Work.HourlyRate,
		RegularHours:  record.Work.RegularHours,
		OvertimeHours: record.Work.OvertimeHours,
		MinimumWage:   minWage,
	}
	quality := record.Quality

	var (
		breakdown entity.PenaltyBreakdown
		score     entity.ComplianceScore
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakdown, err = penalty.Calculate(violations, wc, opts.PeriodMonths, opts.Method)
		return err
	})
	g.Go(func() error {
		var err error
		score, err = compliance.Score(violations, compliance.Options{
			DocumentQuality: &quality,
			EmployerSize:    opts.EmployerSize,
			Industry:        opts.Industry,
			HistoricalScore: opts.HistoricalScore,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.PenaltyBreakdown{}, entity.ComplianceScore{}, err
	}
	return breakdown, score, nil
}

func (p *Processor) withDefaults(o AnalysisOptions) AnalysisOptions {
	if o.PeriodMonths == 0 {
		o.PeriodMonths = p.defaults.PeriodMonths
	}
	if o.PeriodMonths == 0 {
		o.PeriodMonths = 1
	}
	if o.Method == "" {
		o.Method = constants.PenaltyMethod(p.defaults.PenaltyMethod)
	}
	if o.EmployerSize == "" {
		o.EmployerSize = constants.EmployerSize(p.defaults.EmployerSize)
	}
	if o.Industry == "" {
		o.Industry = p.defaults.Industry
	}
	if o.HistoricalScore == nil && p.defaults.HistoricalScore > 0 {
		h := p.defaults.HistoricalScore
		o.HistoricalScore = &h
	}
	return o
}

func (p *Processor) fail(ctx context.Context, logger *slog.Logger, id string, cause error) {
	code := common.ErrorCode(cause)
	msg := cause.Error()
	if code == common.CodeCancelled {
		msg = common.ErrCancelled.Error()
	}
	// the analysis context may already be cancelled; the status write must
	// still land
	wctx := context.WithoutCancel(ctx)
	if _, err := p.store.Advance(wctx, id, repository.Update{Status: constants.StatusFailed, Error: msg, ErrorCode: code}); err != nil &&
		!errors.Is(err, common.ErrInvalidTransition) {
		logger.Error("analysis.fail.store", "error", err)
	}
	if code == common.CodeCancelled {
		logger.Warn("analysis.cancelled")
		return
	}
	logger.Error("analysis.failed", "code", code, "error", cause)
}
