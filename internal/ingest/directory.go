package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Config controls where reports go and how each stub is analyzed.
type Config struct {
	// OutputDir receives <name>.report.json per analyzed file. Empty
	// disables report files.
	OutputDir  string
	SkipHidden bool
	Location   entity.LocationInfo
	Options    core.AnalysisOptions
}

// Ingestor feeds files to an Analyzer. Files with identical content are
// analyzed once per Ingestor.
type Ingestor struct {
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> analysis id
}

func New(analyzer Analyzer, cfg Config, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Location = cfg.Location.WithDefaults()
	return &Ingestor{analyzer: analyzer, cfg: cfg, logger: logger, seen: make(map[string]string)}
}

// IngestPath analyzes a single file.
func (i *Ingestor) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{SourcePath: path, ProcessedAt: time.Now().UTC()}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	doc, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(doc)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	if id, ok := i.seen[out.HashHex]; ok {
		i.mu.Unlock()
		out.AnalysisID = id
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "analysis_id", id)
		return out, nil
	}
	i.mu.Unlock()

	report, err := i.analyzer.Analyze(ctx, core.AnalyzeRequest{
		Document:    doc,
		ContentType: ext,
		Location:    i.cfg.Location,
		Options:     i.cfg.Options,
	})
	if err != nil {
		i.logger.Warn("ingest.analyze.failed", "path", abs, "error", err)
		return out, err
	}

	i.mu.Lock()
	i.seen[out.HashHex] = report.AnalysisID
	i.mu.Unlock()

	out.AnalysisID = report.AnalysisID
	out.Violations = len(report.Violations)
	out.Score = report.Compliance.OverallScore
	if i.cfg.OutputDir != "" {
		if out.ReportPath, err = i.writeReport(abs, report); err != nil {
			return out, err
		}
	}
	i.logger.Info("ingest.analyze.ok", "path", abs, "analysis_id", report.AnalysisID, "violations", out.Violations)
	return out, nil
}

func (i *Ingestor) writeReport(src string, report entity.AnalysisReport) (string, error) {
	if err := os.MkdirAll(i.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".report.json"
	dst := filepath.Join(i.cfg.OutputDir, name)
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(dst, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return dst, nil
}

// IngestDirectory walks root and analyzes every supported file, one at a
// time. Per-file failures are recorded and the walk continues.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.cfg.SkipHidden && IsHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || i.isOutput(path) {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *Ingestor) isOutput(path string) bool {
	if i.cfg.OutputDir == "" {
		return false
	}
	out, err := filepath.Abs(i.cfg.OutputDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, out+string(filepath.Separator))
}

// AllowedExt reports whether ext names a pay stub format.
func AllowedExt(ext string) bool {
	_, ok := constants.NormalizeContentType(constants.NormalizeExt(ext))
	return ok && ext != ""
}

// IsHidden reports whether the base name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
