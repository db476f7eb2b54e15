package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// ReportArchive stores finished analysis reports as opaque JSON documents.
type ReportArchive interface {
	Save(ctx context.Context, report entity.AnalysisReport) error
	Get(ctx context.Context, id string) (entity.AnalysisReport, error)
	List(ctx context.Context, limit int) ([]ReportSummary, error)
}

// ReportSummary is one row of the archive listing.
type ReportSummary struct {
	AnalysisID    string    `json:"analysisId"`
	CreatedAt     time.Time `json:"createdAt"`
	Violations    int       `json:"violations"`
	OverallScore  float64   `json:"overallScore"`
	TotalRecovery float64   `json:"totalRecovery"`
	EngineVersion string    `json:"rulesEngineVersion"`
}

// createdLayout sorts lexically in time order.
const createdLayout = "2006-01-02T15:04:05.000000Z"

const archiveSchema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	analysis_id     TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	violation_count INTEGER NOT NULL,
	overall_score   DOUBLE PRECISION NOT NULL,
	total_recovery  DOUBLE PRECISION NOT NULL,
	engine_version  TEXT NOT NULL,
	report          TEXT NOT NULL
)`

// SQLArchive implements ReportArchive on database/sql for Postgres (pgx)
// and SQLite. Queries are written with ? placeholders and rebound per
// driver.
type SQLArchive struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

func NewSQLArchive(db *sql.DB, driver string, logger *slog.Logger) *SQLArchive {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLArchive{db: db, driver: driver, logger: logger}
}

// Migrate creates the archive table if it does not exist.
func (a *SQLArchive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, archiveSchema); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}
	return nil
}

func (a *SQLArchive) rebind(q string) string {
	if a.driver != DriverPgx {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (a *SQLArchive) Save(ctx context.Context, r entity.AnalysisReport) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.AnalysisID, err)
	}
	q := a.rebind(`
INSERT INTO analysis_reports (analysis_id, created_at, violation_count, overall_score, total_recovery, engine_version, report)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (analysis_id) DO UPDATE SET
	created_at = excluded.created_at,
	violation_count = excluded.violation_count,
	overall_score = excluded.overall_score,
	total_recovery = excluded.total_recovery,
	engine_version = excluded.engine_version,
	report = excluded.report`)
	_, err = a.db.ExecContext(ctx, q,
		r.AnalysisID,
		r.AnalysisTimestamp.UTC().Format(createdLayout),
		len(r.Violations),
		r.Compliance.OverallScore,
		r.Penalty.TotalRecovery,
		r.RulesEngineVersion,
		string(doc),
	)
	if err != nil {
		a.logger.Error("archive save failed", "analysis_id", r.AnalysisID, "error", err)
		return fmt.Errorf("save report %s: %w", r.AnalysisID, err)
	}
	a.logger.Debug("archive saved", "analysis_id", r.AnalysisID, "bytes", len(doc))
	return nil
}

func (a *SQLArchive) Get(ctx context.Context, id string) (entity.AnalysisReport, error) {
	var doc string
	err := a.db.QueryRowContext(ctx, a.rebind(`SELECT report FROM analysis_reports WHERE analysis_id = ?`), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.AnalysisReport{}, notFound(id)
	}
	if err != nil {
		return entity.AnalysisReport{}, fmt.Errorf("get report %s: %w", id, err)
	}
	var r entity.AnalysisReport
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return entity.AnalysisReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return r, nil
}

// List returns the newest reports first.
func (a *SQLArchive) List(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, a.rebind(`
SELECT analysis_id, created_at, violation_count, overall_score, total_recovery, engine_version
FROM analysis_reports ORDER BY created_at DESC, analysis_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]ReportSummary, 0)
	for rows.Next() {
		var (
			s  ReportSummary
			ts string
		)
		if err := rows.Scan(&s.AnalysisID, &ts, &s.Violations, &s.OverallScore, &s.TotalRecovery, &s.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		s.CreatedAt, _ = time.Parse(createdLayout, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}
