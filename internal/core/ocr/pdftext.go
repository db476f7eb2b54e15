package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// textLayerBonus rewards born-digital PDFs whose text layer is exact.
const textLayerBonus = 10.0

// PDFTextConfig configures PDFTextProvider.
type PDFTextConfig struct {
	Binary   string // default "pdftotext"
	MaxPages int    // 0 = all pages
}

// PDFTextProvider reads the embedded text layer of a PDF with pdftotext.
type PDFTextProvider struct {
	cfg    PDFTextConfig
	runner Runner
	logger *slog.Logger
}

func NewPDFTextProvider(cfg PDFTextConfig, runner Runner, logger *slog.Logger) *PDFTextProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "pdftotext"
	}
	if runner == nil {
		runner = execRunner{logger: logger}
	}
	return &PDFTextProvider{cfg: cfg, runner: runner, logger: logger}
}

func (p *PDFTextProvider) Name() string { return constants.ProviderPDFText }

func (p *PDFTextProvider) SupportedContentTypes() []string {
	return []string{constants.ContentTypePDF}
}

func (p *PDFTextProvider) Extract(ctx context.Context, doc []byte, contentType string) (entity.RawOCRResult, error) {
	start := time.Now()
	if contentType != constants.ContentTypePDF {
		return failedResult(p.Name(), "pdftotext only reads PDF input"), nil
	}

	pages := PageCount(doc, contentType)

	// pdftotext -layout [-l N] - -   (stdin -> stdout)
	args := []string{"-layout", "-enc", "UTF-8"}
	if p.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.cfg.MaxPages))
	}
	args = append(args, "-", "-")

	out, errb, err := p.runner.Run(ctx, bytes.NewReader(doc), p.cfg.Binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return entity.RawOCRResult{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return failedResult(p.Name(), "pdftotext exited %d: %s", exitErr.ExitCode(), strings.TrimSpace(truncate(string(errb), 200))), nil
		}
		return entity.RawOCRResult{}, err
	}

	txt := CleanText(string(out))
	if txt == "" {
		return failedResult(p.Name(), "PDF has no text layer (scanned document)"), nil
	}
	conf := HeuristicConfidence(txt)
	if conf >= 50 {
		conf = clamp(conf+textLayerBonus, 0, 100)
	}
	return entity.RawOCRResult{
		Provider:      p.Name(),
		Success:       true,
		Confidence:    conf,
		ExtractedText: txt,
		PageCount:     pages,
		Duration:      time.Since(start),
	}, nil
}

// PageCount returns the number of pages in a PDF (1 for images). Parse
// failures yield 0; the extracting engine decides whether the file is usable.
func PageCount(doc []byte, contentType string) (n int) {
	if contentType != constants.ContentTypePDF {
		return 1
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	n, err := api.PageCount(bytes.NewReader(doc), nil)
	if err != nil {
		return 0
	}
	return n
}
