package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/repository"
)

// ContentTypeXLSX is served with exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service is a small façade over the state store and the report archive
// that produces XLSX bytes.
type Service struct {
	store   repository.AnalysisStore
	archive repository.ReportArchive
	logger  *slog.Logger
}

// NewService builds an export service. archive may be nil.
func NewService(store repository.AnalysisStore, archive repository.ReportArchive, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, archive: archive, logger: logger}
}

// Report finds a finished report: the live store first, then the archive.
// Analyses that have not completed are reported as not found.
func (s *Service) Report(ctx context.Context, id string) (entity.AnalysisReport, error) {
	state, err := s.store.Get(ctx, id)
	switch {
	case err == nil && state.Status == constants.StatusCompleted && state.Report != nil:
		return *state.Report, nil
	case err == nil:
		return entity.AnalysisReport{}, common.NewAppError(common.CodeNotFound,
			fmt.Sprintf("analysis %s has no report (status %s)", id, state.Status), common.ErrNotFound)
	case !errors.Is(err, common.ErrNotFound):
		return entity.AnalysisReport{}, err
	}
	if s.archive == nil {
		return entity.AnalysisReport{}, err
	}
	return s.archive.Get(ctx, id)
}

// ExportReportXLSX renders one analysis as a workbook.
func (s *Service) ExportReportXLSX(ctx context.Context, id string) ([]byte, error) {
	r, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.RenderReport(r)
}

// RenderReport writes the Summary, Violations, Penalties and Pay Stub
// sheets for r.
func (s *Service) RenderReport(r entity.AnalysisReport) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummary(f, r); err != nil {
		return nil, err
	}
	if err := writeViolations(f, r.Violations); err != nil {
		return nil, err
	}
	if err := writePenalties(f, r.Penalty); err != nil {
		return nil, err
	}
	if err := writePayStub(f, r.Record); err != nil {
		return nil, err
	}
	// excelize starts every file with Sheet1
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"analysis_id", r.AnalysisID,
		"violations", len(r.Violations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportHistoryXLSX lists archived analyses, newest first.
func (s *Service) ExportHistoryXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.archive == nil {
		return nil, common.NewAppError(common.CodeConfig, "report archive is not configured", common.ErrNotFound)
	}
	rows, err := s.archive.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "History"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	w := sheetWriter{f: f, sheet: sheet}
	w.row(1, "Analysis ID", "Created", "Violations", "Compliance Score", "Total Recovery", "Rules Engine")
	for i, r := range rows {
		w.row(i+2, r.AnalysisID, r.CreatedAt.UTC().Format(time.RFC3339), r.Violations, r.OverallScore, r.TotalRecovery, r.EngineVersion)
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 22)
	_ = f.SetColWidth(sheet, "C", "F", 16)
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.history.ok", "rows", len(rows))
	return buf.Bytes(), nil
}

const (
	sheetSummary    = "Summary"
	sheetViolations = "Violations"
	sheetPenalties  = "Penalties"
	sheetPayStub    = "Pay Stub"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) row(n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func newSheet(f *excelize.File, name string) (*sheetWriter, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("new sheet %s: %w", name, err)
	}
	return &sheetWriter{f: f, sheet: name}, nil
}

func writeSummary(f *excelize.File, r entity.AnalysisReport) error {
	w, err := newSheet(f, sheetSummary)
	if err != nil {
		return err
	}
	rows := [][]any{
		{"Analysis ID", r.AnalysisID},
		{"Analyzed At", r.AnalysisTimestamp.UTC().Format(time.RFC3339)},
		{"Rules Engine", r.RulesEngineVersion},
		{"Employee", r.Record.EmployeeInfo.Name},
		{"Employer", r.Record.EmployerName},
		{"Pay Period", periodLabel(r.Record.PayPeriod)},
		{"Location", locationLabel(r.Location)},
		{"OCR Provider", r.OCR.Provider},
		{"OCR Confidence", r.OCR.Confidence},
		{"Violations", r.Summary.TotalViolations},
		{"High Severity", r.Summary.HighSeverity},
		{"Estimated Recovery", r.Penalty.TotalRecovery},
		{"Compliance Score", r.Compliance.OverallScore},
		{"Grade", r.Compliance.Grade},
		{"Risk Level", r.Compliance.RiskLevel},
	}
	for i, v := range rows {
		w.row(i+1, v...)
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 22)
	_ = f.SetColWidth(sheetSummary, "B", "B", 44)
	return w.err
}

func writeViolations(f *excelize.File, vs []entity.Violation) error {
	w, err := newSheet(f, sheetViolations)
	if err != nil {
		return err
	}
	w.row(1, "Type", "Category", "Severity", "Confidence", "Description", "Actual", "Expected", "Statutory Reference", "Recommendation")
	for i, v := range vs {
		w.row(i+2,
			string(v.Type),
			string(v.Type.Category()),
			string(v.Severity),
			v.Confidence,
			truncate(v.Description, 240),
			optional(v.ActualValue),
			optional(v.ExpectedValue),
			v.StatutoryReference,
			truncate(v.Recommendation, 240),
		)
	}
	_ = f.SetColWidth(sheetViolations, "A", "A", 34)
	_ = f.SetColWidth(sheetViolations, "B", "D", 14)
	_ = f.SetColWidth(sheetViolations, "E", "E", 60)
	_ = f.SetColWidth(sheetViolations, "F", "G", 12)
	_ = f.SetColWidth(sheetViolations, "H", "H", 24)
	_ = f.SetColWidth(sheetViolations, "I", "I", 60)
	return w.err
}

func writePenalties(f *excelize.File, p entity.PenaltyBreakdown) error {
	w, err := newSheet(f, sheetPenalties)
	if err != nil {
		return err
	}
	w.row(1, "Violation", "Kind", "Amount", "Basis")
	n := 2
	for _, vp := range p.PerViolation {
		w.row(n, string(vp.Type), string(vp.Kind), vp.Amount, vp.Basis)
		n++
	}
	n++
	for _, line := range [][]any{
		{"Unpaid Wages", p.UnpaidWages},
		{"Statutory Penalties", p.StatutoryPenalties},
		{"Waiting Time Penalties", p.WaitingTimePenalties},
		{"Interest", p.Interest},
		{"Total Recovery", p.TotalRecovery},
		{"Method", string(p.Method)},
		{"Period (months)", p.PeriodMonths},
	} {
		w.row(n, line...)
		n++
	}
	_ = f.SetColWidth(sheetPenalties, "A", "A", 34)
	_ = f.SetColWidth(sheetPenalties, "B", "C", 14)
	_ = f.SetColWidth(sheetPenalties, "D", "D", 60)
	return w.err
}

func writePayStub(f *excelize.File, rec entity.NormalizedPayStubRecord) error {
	w, err := newSheet(f, sheetPayStub)
	if err != nil {
		return err
	}
	w.row(1, "Earnings", "Type", "Hours", "Rate", "Amount")
	n := 2
	for _, e := range rec.Earnings {
		w.row(n, e.Description, string(e.Type), optional(e.Hours), optional(e.Rate), e.Amount)
		n++
	}
	n++
	w.row(n, "Deductions", "Type", "", "", "Amount")
	n++
	for _, d := range rec.Deductions {
		w.row(n, d.Description, string(d.Type), "", "", d.Amount)
		n++
	}
	n++
	for _, line := range [][]any{
		{"Gross Pay", rec.Totals.GrossPay},
		{"Total Deductions", rec.Totals.TotalDeductions},
		{"Net Pay", rec.Totals.NetPay},
		{"Data Completeness", rec.Quality.DataCompleteness},
		{"Extraction Confidence", rec.Quality.Confidence},
	} {
		w.row(n, line[0], "", "", "", line[1])
		n++
	}
	_ = f.SetColWidth(sheetPayStub, "A", "A", 30)
	_ = f.SetColWidth(sheetPayStub, "B", "E", 14)
	return w.err
}

func periodLabel(p entity.PayPeriod) string {
	switch {
	case p.Start == "" && p.End == "":
		return ""
	case p.PayDate != "":
		return fmt.Sprintf("%s to %s (paid %s)", p.Start, p.End, p.PayDate)
	}
	return p.Start + " to " + p.End
}

func locationLabel(l entity.LocationInfo) string {
	if l.City == "" {
		return l.State
	}
	return l.City + ", " + l.State
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
