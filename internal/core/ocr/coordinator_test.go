package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

type fakeProvider struct {
	name   string
	result entity.RawOCRResult
	err    error
	delay  time.Duration
	panics bool
	calls  atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(ctx context.Context, _ []byte, _ string) (entity.RawOCRResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("engine crashed")
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return entity.RawOCRResult{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.result, f.err
}

func ok(name string, conf float64) *fakeProvider {
	return &fakeProvider{name: name, result: entity.RawOCRResult{Success: true, Confidence: conf, ExtractedText: "Gross Pay 100.00 from " + name}}
}

func failing(name, reason string) *fakeProvider {
	return &fakeProvider{name: name, result: entity.RawOCRResult{Success: false, Error: reason}}
}

var pdf = []byte("%PDF-1.7 fake")

func TestResolvePrimaryFailsOneFallbackSucceeds(t *testing.T) {
	primary := failing("primary", "unreadable")
	good := ok("good", 90)
	bad := failing("bad", "timeout talking to engine")
	c := NewCoordinator(nil, primary, good, bad)

	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{
		Primary:   "primary",
		Fallbacks: []string{"good", "bad"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "good" {
		t.Errorf("Result.Provider = %q, want good", res.Result.Provider)
	}
	if res.CombinedConfidence != 90 {
		t.Errorf("CombinedConfidence = %v, want 90", res.CombinedConfidence)
	}
	if got := len(res.Attempts); got != 3 {
		t.Errorf("len(Attempts) = %d, want 3", got)
	}
	if errs := res.Errors(); errs["primary"] != "unreadable" || errs["bad"] == "" {
		t.Errorf("Errors() = %v", errs)
	}
}

func TestResolveSkipsFallbacksWhenPrimaryConfident(t *testing.T) {
	primary := ok("primary", 88)
	fb := ok("fb", 99)
	c := NewCoordinator(nil, primary, fb)

	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{Primary: "primary", Fallbacks: []string{"fb"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "primary" {
		t.Errorf("Result.Provider = %q, want primary", res.Result.Provider)
	}
	if fb.calls.Load() != 0 {
		t.Errorf("fallback called %d times, want 0", fb.calls.Load())
	}
}

func TestResolveLowConfidencePrimaryTriggersFallbacks(t *testing.T) {
	primary := ok("primary", 50)
	fb := ok("fb", 75)
	c := NewCoordinator(nil, primary, fb)

	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{
		Primary:         "primary",
		Fallbacks:       []string{"fb"},
		ConfidenceFloor: entity.Float(60),
		Priority:        []string{"primary", "fb"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "fb" {
		t.Errorf("Result.Provider = %q, want fb", res.Result.Provider)
	}
	// weights 2 (primary) and 1 (fb): (2*50 + 75) / 3
	if res.CombinedConfidence != 58.33 {
		t.Errorf("CombinedConfidence = %v, want 58.33", res.CombinedConfidence)
	}
}

func TestResolveZeroFloorKeepsLowConfidencePrimary(t *testing.T) {
	primary := ok("primary", 10)
	fb := ok("fb", 90)
	c := NewCoordinator(nil, primary, fb)

	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{
		Primary:         "primary",
		Fallbacks:       []string{"fb"},
		ConfidenceFloor: entity.Float(0),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "primary" {
		t.Errorf("Result.Provider = %q, want primary", res.Result.Provider)
	}
	if fb.calls.Load() != 0 {
		t.Errorf("fallback called %d times with a zero floor, want 0", fb.calls.Load())
	}

	cfg := common.DefaultConfig().OCR
	cfg.ConfidenceFloor = 0
	if p := PolicyFromConfig(cfg).withDefaults(); *p.ConfidenceFloor != 0 {
		t.Errorf("configured floor 0 became %v", *p.ConfidenceFloor)
	}
}

func TestResolveProviderLogsCarryAnalysisID(t *testing.T) {
	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := common.WithAnalysisID(common.WithLogger(context.Background(), ctxLogger), "a-1")

	c := NewCoordinator(slog.New(slog.NewJSONHandler(io.Discard, nil)), ok("primary", 90))
	if _, err := c.Resolve(ctx, pdf, constants.ContentTypePDF, Policy{Primary: "primary"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"msg":"ocr.provider.done"`) {
			found = true
			if !strings.Contains(line, `"analysis_id":"a-1"`) {
				t.Errorf("provider log lacks analysis id: %s", line)
			}
		}
	}
	if !found {
		t.Errorf("no ocr.provider.done event on the context logger:\n%s", buf.String())
	}
}

func TestResolveTieBreaksByPriority(t *testing.T) {
	a := ok("a", 80)
	b := ok("b", 80)
	c := NewCoordinator(nil, a, b)

	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{
		Fallbacks:          []string{"a", "b"},
		TryAllConcurrently: true,
		Priority:           []string{"b", "a"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "b" {
		t.Errorf("Result.Provider = %q, want b (higher priority)", res.Result.Provider)
	}
}

func TestResolveAllFail(t *testing.T) {
	c := NewCoordinator(nil,
		failing("one", "blank page"),
		&fakeProvider{name: "two", err: errors.New("connection refused")},
		&fakeProvider{name: "three", result: entity.RawOCRResult{Success: true, Confidence: 70}},
	)
	_, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{Primary: "one", Fallbacks: []string{"two", "three"}})
	if !errors.Is(err, common.ErrNoTextExtracted) {
		t.Fatalf("err = %v, want ErrNoTextExtracted", err)
	}
	var nte *NoTextExtractedError
	if !errors.As(err, &nte) {
		t.Fatalf("err is %T, want *NoTextExtractedError", err)
	}
	for _, name := range []string{"one", "two", "three"} {
		if nte.Errors[name] == "" {
			t.Errorf("missing reason for %s in %v", name, nte.Errors)
		}
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error message %q does not name %s", err, name)
		}
	}
	if got := common.ErrorCode(err); got != common.CodeNoTextExtracted {
		t.Errorf("ErrorCode = %q, want %q", got, common.CodeNoTextExtracted)
	}
}

func TestResolveProviderTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", delay: time.Second, result: entity.RawOCRResult{Success: true, Confidence: 99, ExtractedText: "x"}}
	fast := ok("fast", 70)
	c := NewCoordinator(nil, slow, fast)

	start := time.Now()
	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{
		Fallbacks:          []string{"slow", "fast"},
		TryAllConcurrently: true,
		ProviderTimeout:    30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Resolve took %v, provider timeout not applied", elapsed)
	}
	if res.Result.Provider != "fast" {
		t.Errorf("Result.Provider = %q, want fast", res.Result.Provider)
	}
	if res.Errors()["slow"] == "" {
		t.Error("slow provider should be recorded as failed")
	}
}

func TestResolveParentCancelled(t *testing.T) {
	slow := &fakeProvider{name: "slow", delay: time.Second}
	c := NewCoordinator(nil, slow)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Resolve(ctx, pdf, constants.ContentTypePDF, Policy{Primary: "slow"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestResolveRecoversPanics(t *testing.T) {
	c := NewCoordinator(nil, &fakeProvider{name: "boom", panics: true}, ok("fine", 65))
	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{Primary: "boom", Fallbacks: []string{"fine"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Result.Provider != "fine" {
		t.Errorf("Result.Provider = %q, want fine", res.Result.Provider)
	}
	if !strings.Contains(res.Errors()["boom"], "panicked") {
		t.Errorf("boom error = %q, want panic reason", res.Errors()["boom"])
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	c := NewCoordinator(nil, ok("a", 90))
	_, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{Primary: "a", Fallbacks: []string{"ghost"}})
	if got := common.ErrorCode(err); got != common.CodeConfig {
		t.Errorf("ErrorCode = %q, want %q", got, common.CodeConfig)
	}
}

type imagesOnly struct{ *fakeProvider }

func (imagesOnly) SupportedContentTypes() []string {
	return []string{constants.ContentTypeJPEG, constants.ContentTypePNG}
}

func TestResolveSkipsUnsupportedContentType(t *testing.T) {
	img := imagesOnly{ok("img", 95)}
	txt := ok("txt", 70)
	c := NewCoordinator(nil, img, txt)
	res, err := c.Resolve(context.Background(), pdf, constants.ContentTypePDF, Policy{Primary: "img", Fallbacks: []string{"txt"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if img.calls.Load() != 0 {
		t.Error("image-only provider should not be called for a PDF")
	}
	if res.Result.Provider != "txt" {
		t.Errorf("Result.Provider = %q, want txt", res.Result.Provider)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(common.DefaultConfig().OCR).withDefaults()
	if p.Primary != constants.ProviderDocIntel {
		t.Errorf("Primary = %q", p.Primary)
	}
	if p.ConfidenceFloor == nil || *p.ConfidenceFloor != DefaultConfidenceFloor {
		t.Errorf("ConfidenceFloor = %v, want %v", p.ConfidenceFloor, entity.Float(DefaultConfidenceFloor))
	}
	if got := p.priorityOrder(); got[0] != constants.ProviderDocIntel || got[len(got)-1] != constants.ProviderTesseract {
		t.Errorf("priorityOrder = %v", got)
	}
}
