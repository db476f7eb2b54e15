package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

const (
	DefaultConfidenceFloor = 60.0
	DefaultProviderTimeout = 30 * time.Second
)

// Policy says which providers to run and how.
type Policy struct {
	Primary            string
	Fallbacks          []string
	TryAllConcurrently bool
	ConfidenceFloor    *float64 // 0..100, nil for DefaultConfidenceFloor; a primary below it triggers the fallbacks
	ProviderTimeout    time.Duration
	Priority           []string // tie-break order; unlisted members follow in policy order
}

// PolicyFromConfig builds a Policy from the OCR configuration section.
func PolicyFromConfig(cfg common.OCRConfig) Policy {
	return Policy{
		Primary:            cfg.Primary,
		Fallbacks:          cfg.Fallbacks,
		TryAllConcurrently: cfg.TryAllConcurrently,
		ConfidenceFloor:    entity.Float(cfg.ConfidenceFloor),
		ProviderTimeout:    cfg.ProviderTimeout,
		Priority:           cfg.Priority,
	}
}

func (p Policy) withDefaults() Policy {
	if p.ConfidenceFloor == nil {
		p.ConfidenceFloor = entity.Float(DefaultConfidenceFloor)
	}
	if p.ProviderTimeout <= 0 {
		p.ProviderTimeout = DefaultProviderTimeout
	}
	if len(p.Priority) == 0 {
		p.Priority = constants.DefaultProviderPriority
	}
	return p
}

// members returns primary then fallbacks, deduplicated.
func (p Policy) members() []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range append([]string{p.Primary}, p.Fallbacks...) {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// priorityOrder returns the policy members sorted by tie-break priority.
func (p Policy) priorityOrder() []string {
	members := p.members()
	rank := make(map[string]int, len(members))
	for i, n := range members {
		rank[n] = len(p.Priority) + i
	}
	for i, n := range p.Priority {
		if _, ok := rank[n]; ok {
			rank[n] = i
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return rank[members[i]] < rank[members[j]] })
	return members
}

// Attempt records one provider call.
type Attempt struct {
	Provider   string        `json:"provider"`
	Success    bool          `json:"success"`
	Confidence float64       `json:"confidence"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
}

// Resolution is the coordinator's output: the winning result plus the
// priority-weighted confidence of every successful provider.
type Resolution struct {
	Result             entity.RawOCRResult
	CombinedConfidence float64
	Attempts           []Attempt
}

// ProvidersTried returns the provider names in call order.
func (r Resolution) ProvidersTried() []string {
	out := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.Provider
	}
	return out
}

// Errors returns the failure reason per failed provider.
func (r Resolution) Errors() map[string]string {
	out := make(map[string]string)
	for _, a := range r.Attempts {
		if !a.Success {
			out[a.Provider] = a.Error
		}
	}
	return out
}

// NoTextExtractedError is returned when every provider failed.
type NoTextExtractedError struct {
	Errors map[string]string
}

func (e *NoTextExtractedError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for n := range e.Errors {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %s", n, e.Errors[n])
	}
	return "no text extracted by any provider (" + strings.Join(parts, "; ") + ")"
}

func (e *NoTextExtractedError) Unwrap() error { return common.ErrNoTextExtracted }

// Coordinator runs providers per policy and picks the best result.
type Coordinator struct {
	providers map[string]Provider
	logger    *slog.Logger
}

func NewCoordinator(logger *slog.Logger, providers ...Provider) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Coordinator{providers: m, logger: logger}
}

// Providers returns the registered providers keyed by name.
func (c *Coordinator) Providers() map[string]Provider {
	out := make(map[string]Provider, len(c.providers))
	for k, v := range c.providers {
		out[k] = v
	}
	return out
}

type outcome struct {
	result  entity.RawOCRResult
	attempt Attempt
}

// Resolve extracts text from doc. The primary runs first; if it fails or
// reports confidence below the floor, every fallback runs concurrently and
// the coordinator waits for all of them (each bounded by ProviderTimeout).
// With TryAllConcurrently, or without a primary, all members run at once.
// No provider call outlives Resolve.
func (c *Coordinator) Resolve(ctx context.Context, doc []byte, contentType string, policy Policy) (Resolution, error) {
	policy = policy.withDefaults()
	logger := common.LoggerFromContext(ctx, c.logger)

	members := policy.members()
	if len(members) == 0 {
		return Resolution{}, common.NewAppError(common.CodeConfig, "ocr policy names no providers", common.ErrInvalidInput)
	}
	for _, n := range members {
		if _, ok := c.providers[n]; !ok {
			return Resolution{}, common.NewAppError(common.CodeConfig, fmt.Sprintf("ocr provider %q is not configured", n), common.ErrInvalidInput)
		}
	}

	start := time.Now()
	logger.Info("ocr.resolve.start", "providers", members, "concurrent", policy.TryAllConcurrently, "bytes", len(doc))

	var outcomes []outcome
	if policy.TryAllConcurrently || policy.Primary == "" {
		outcomes = c.runAll(ctx, members, doc, contentType, policy.ProviderTimeout)
	} else {
		primary := c.runOne(ctx, policy.Primary, doc, contentType, policy.ProviderTimeout)
		outcomes = append(outcomes, primary)
		if floor := *policy.ConfidenceFloor; !primary.result.Success || primary.result.Confidence < floor {
			logger.Warn("ocr.resolve.fallback",
				"primary", policy.Primary,
				"success", primary.result.Success,
				"confidence", primary.result.Confidence,
				"floor", floor,
				"error", primary.attempt.Error,
			)
			outcomes = append(outcomes, c.runAll(ctx, members[1:], doc, contentType, policy.ProviderTimeout)...)
		}
	}

	if err := ctx.Err(); err != nil {
		return Resolution{}, fmt.Errorf("ocr resolve: %w", err)
	}

	res := Resolution{Attempts: make([]Attempt, len(outcomes))}
	for i, o := range outcomes {
		res.Attempts[i] = o.attempt
	}

	order := policy.priorityOrder()
	rank := make(map[string]int, len(order))
	for i, n := range order {
		rank[n] = i
	}

	var (
		best         *entity.RawOCRResult
		weightedSum  float64
		totalWeights float64
	)
	for i := range outcomes {
		r := outcomes[i].result
		if !r.Success {
			continue
		}
		w := float64(len(order) - rank[r.Provider])
		weightedSum += w * r.Confidence
		totalWeights += w
		if best == nil || r.Confidence > best.Confidence ||
			(r.Confidence == best.Confidence && rank[r.Provider] < rank[best.Provider]) {
			best = &outcomes[i].result
		}
	}

	if best == nil {
		err := &NoTextExtractedError{Errors: res.Errors()}
		logger.Error("ocr.resolve.failed", "errors", err.Errors, "elapsed_ms", time.Since(start).Milliseconds())
		return res, err
	}

	res.Result = *best
	res.CombinedConfidence = round2(weightedSum / totalWeights)
	logger.Info("ocr.resolve.ok",
		"provider", best.Provider,
		"confidence", best.Confidence,
		"combined_confidence", res.CombinedConfidence,
		"attempts", len(res.Attempts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (c *Coordinator) runAll(ctx context.Context, names []string, doc []byte, contentType string, timeout time.Duration) []outcome {
	out := make([]outcome, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			out[i] = c.runOne(ctx, name, doc, contentType, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Coordinator) runOne(ctx context.Context, name string, doc []byte, contentType string, timeout time.Duration) (o outcome) {
	p := c.providers[name]
	logger := common.LoggerFromContext(ctx, c.logger)
	start := time.Now()
	o.attempt.Provider = name
	defer func() {
		if r := recover(); r != nil {
			o.result = failedResult(name, "provider panicked: %v", r)
			o.attempt.Success = false
			o.attempt.Error = o.result.Error
			logger.Error("ocr.provider.panic", "provider", name, "panic", r)
		}
		o.attempt.Duration = time.Since(start)
	}()

	if !supports(p, contentType) {
		o.result = failedResult(name, "content type %s not supported", contentType)
		o.attempt.Error = o.result.Error
		return o
	}

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := p.Extract(pctx, doc, contentType)
	res.Provider = name
	switch {
	case err != nil:
		res = failedResult(name, "%v", err)
	case res.Success && strings.TrimSpace(res.ExtractedText) == "" && len(res.StructuredHints) == 0:
		res = failedResult(name, "provider returned no text")
	case !res.Success && res.Error == "":
		res.Error = "extraction failed"
	}
	res.Confidence = clamp(res.Confidence, 0, 100)

	o.result = res
	o.attempt.Success = res.Success
	o.attempt.Confidence = res.Confidence
	o.attempt.Error = res.Error
	logger.Debug("ocr.provider.done", "provider", name, "success", res.Success, "confidence", res.Confidence, "error", res.Error)
	return o
}

func round2(v float64) float64 {
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
