// Package ingest analyzes pay stubs found on the local filesystem, either
// once over a directory tree or continuously as files arrive.
package ingest

import (
	"context"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Result is the per-file outcome.
type Result struct {
	SourcePath   string    `json:"sourcePath"`
	AnalysisID   string    `json:"analysisId,omitempty"`
	HashHex      string    `json:"sha256,omitempty"`
	Deduplicated bool      `json:"deduplicated,omitempty"`
	Violations   int       `json:"violations"`
	Score        float64   `json:"overallScore,omitempty"`
	ReportPath   string    `json:"reportPath,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Analyzer runs one analysis synchronously. *core.Processor satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalyzeRequest) (entity.AnalysisReport, error)
}
