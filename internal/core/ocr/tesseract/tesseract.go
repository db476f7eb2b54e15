// Package tesseract adapts the local Tesseract engine (via cgo) to the
// ocr.Provider contract. It lives in its own package so the rest of the
// OCR layer builds without libtesseract.
package tesseract

import (
	"context"
	"log/slog"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Config configures Provider.
type Config struct {
	Languages   []string // default ["eng"]
	TessdataDir string
}

// Provider runs Tesseract on JPEG/PNG pay stubs.
type Provider struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Provider{cfg: cfg, logger: logger}
}

func (p *Provider) Name() string { return constants.ProviderTesseract }

func (p *Provider) SupportedContentTypes() []string {
	return []string{constants.ContentTypeJPEG, constants.ContentTypePNG}
}

type recognition struct {
	text string
	err  error
}

// Extract runs recognition on a goroutine so ctx expiry returns promptly;
// the engine call itself cannot be interrupted and finishes in the
// background before its client is closed.
func (p *Provider) Extract(ctx context.Context, doc []byte, contentType string) (entity.RawOCRResult, error) {
	start := time.Now()
	if !constants.IsImage(contentType) {
		return entity.RawOCRResult{Provider: p.Name(), Error: "tesseract only reads JPEG or PNG input"}, nil
	}

	done := make(chan recognition, 1)
	go func() {
		done <- p.recognize(doc)
	}()

	var rec recognition
	select {
	case <-ctx.Done():
		return entity.RawOCRResult{}, ctx.Err()
	case rec = <-done:
	}
	if rec.err != nil {
		p.logger.Warn("tesseract.recognize.failed", "error", rec.err)
		return entity.RawOCRResult{Provider: p.Name(), Error: rec.err.Error()}, nil
	}

	txt := ocr.CleanText(rec.text)
	if txt == "" {
		return entity.RawOCRResult{Provider: p.Name(), Error: "no text recognized"}, nil
	}
	return entity.RawOCRResult{
		Provider:      p.Name(),
		Success:       true,
		Confidence:    ocr.HeuristicConfidence(txt),
		ExtractedText: txt,
		PageCount:     1,
		Duration:      time.Since(start),
	}, nil
}

func (p *Provider) recognize(doc []byte) recognition {
	client := gosseract.NewClient()
	defer client.Close()

	if p.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(p.cfg.TessdataDir); err != nil {
			return recognition{err: err}
		}
	}
	if err := client.SetLanguage(p.cfg.Languages...); err != nil {
		return recognition{err: err}
	}
	if err := client.SetImageFromBytes(doc); err != nil {
		return recognition{err: err}
	}
	text, err := client.Text()
	return recognition{text: text, err: err}
}
