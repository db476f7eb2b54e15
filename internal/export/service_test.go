package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleReport(id string) entity.AnalysisReport {
	return entity.AnalysisReport{
		AnalysisID:         id,
		Location:           entity.LocationInfo{City: "Oakland", State: "CA"},
		RulesEngineVersion: "1.0.0",
		AnalysisTimestamp:  time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
		Record: entity.NormalizedPayStubRecord{
			EmployeeInfo: entity.EmployeeInfo{Name: "Maria Lopez"},
			EmployerName: "Sunrise Foods LLC",
			PayPeriod:    entity.PayPeriod{Start: "2024-03-01", End: "2024-03-15"},
			Earnings:     []entity.EarningLine{{Description: "Regular", Hours: entity.Float(40), Rate: entity.Float(15), Amount: 600, Type: constants.EarningRegular}},
			Totals:       entity.Totals{GrossPay: 600, NetPay: 520, TotalDeductions: 80},
		},
		Violations: []entity.Violation{
			{
				Type:               constants.ViolationMinimumWage,
				Severity:           constants.SeverityHigh,
				Confidence:         0.98,
				Description:        "Hourly rate $15.00 is below the $16.94 minimum wage",
				StatutoryReference: "CA Labor Code § 1182.12",
				ActualValue:        entity.Float(15),
				ExpectedValue:      entity.Float(16.94),
			},
		},
		Summary:    entity.ViolationSummary{TotalViolations: 1, HighSeverity: 1},
		Penalty:    entity.PenaltyBreakdown{UnpaidWages: 2328, TotalRecovery: 2400, Method: constants.MethodModerate, PeriodMonths: 1},
		Compliance: entity.ComplianceScore{OverallScore: 55, Grade: "F", RiskLevel: "critical"},
	}
}

func openWorkbook(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRenderReport(t *testing.T) {
	s := NewService(repository.NewMemoryStore(time.Hour, quietLogger()), nil, quietLogger())
	b, err := s.RenderReport(sampleReport("r-1"))
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	f := openWorkbook(t, b)

	want := []string{sheetSummary, sheetViolations, sheetPenalties, sheetPayStub}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	if v, _ := f.GetCellValue(sheetSummary, "B1"); v != "r-1" {
		t.Errorf("Summary!B1 = %q, want r-1", v)
	}
	if v, _ := f.GetCellValue(sheetSummary, "B7"); v != "Oakland, CA" {
		t.Errorf("Summary!B7 = %q, want Oakland, CA", v)
	}
	if v, _ := f.GetCellValue(sheetViolations, "A2"); v != string(constants.ViolationMinimumWage) {
		t.Errorf("Violations!A2 = %q", v)
	}
	if v, _ := f.GetCellValue(sheetViolations, "B2"); v != string(constants.CategoryWages) {
		t.Errorf("Violations!B2 = %q, want wages", v)
	}
	rows, _ := f.GetRows(sheetPenalties)
	var total string
	for _, r := range rows {
		if len(r) > 1 && r[0] == "Total Recovery" {
			total = r[1]
		}
	}
	if total != "2400" {
		t.Errorf("Total Recovery cell = %q, want 2400", total)
	}
}

func TestExportReportXLSXLookups(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.Hour, quietLogger())
	s := NewService(store, nil, quietLogger())

	if _, err := store.Create(ctx, "live"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ExportReportXLSX(ctx, "live"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("queued analysis err = %v, want ErrNotFound", err)
	}

	for _, st := range []constants.AnalysisStatus{constants.StatusOCRInProgress, constants.StatusNormalized, constants.StatusScored} {
		if _, err := store.Advance(ctx, "live", repository.Update{Status: st}); err != nil {
			t.Fatal(err)
		}
	}
	r := sampleReport("live")
	if _, err := store.Advance(ctx, "live", repository.Update{Status: constants.StatusCompleted, Report: &r}); err != nil {
		t.Fatal(err)
	}
	b, err := s.ExportReportXLSX(ctx, "live")
	if err != nil {
		t.Fatalf("ExportReportXLSX: %v", err)
	}
	if len(b) == 0 {
		t.Error("empty workbook")
	}

	if _, err := s.ExportReportXLSX(ctx, "nowhere"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestExportFromArchive(t *testing.T) {
	ctx := context.Background()
	cfg := common.DatabaseConfig{Driver: repository.DriverSQLite, DSN: t.TempDir() + "/archive.db"}
	db, pool, err := repository.Open(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repository.Close(db, pool, quietLogger())
	archive := repository.NewSQLArchive(db, repository.DriverSQLite, quietLogger())
	if err := archive.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := archive.Save(ctx, sampleReport("old")); err != nil {
		t.Fatal(err)
	}

	s := NewService(repository.NewMemoryStore(time.Hour, quietLogger()), archive, quietLogger())
	b, err := s.ExportReportXLSX(ctx, "old")
	if err != nil {
		t.Fatalf("ExportReportXLSX(archived): %v", err)
	}
	f := openWorkbook(t, b)
	if v, _ := f.GetCellValue(sheetSummary, "B5"); v != "Sunrise Foods LLC" {
		t.Errorf("Summary!B5 = %q", v)
	}

	b, err = s.ExportHistoryXLSX(ctx, 10)
	if err != nil {
		t.Fatalf("ExportHistoryXLSX: %v", err)
	}
	h := openWorkbook(t, b)
	rows, _ := h.GetRows("History")
	if len(rows) != 2 || rows[1][0] != "old" {
		t.Errorf("History rows = %v", rows)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 4, "abc…"},
		{"§§§§", 2, "§…"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
