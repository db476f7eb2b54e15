package normalize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

const sampleStub = `Acme Widgets, Inc.
Employee Name: JANE Q. DOE  Employee ID: E-1042
Department: Warehouse
Pay Period: 01/01/2024 - 01/14/2024  Pay Date: Jan 19, 2024

Description  Hours  Rate  Current  YTD
Regular  80.00  20.00  1,600.00  3,200.00
Overtime  5.00  30.00  150.00  300.00
Holiday Pay  160.00
Federal Income Tax  150.00  300.00
CA State Tax  60.00
Social Security  108.50
Medicare  25.38
401(k)  50.00

Gross Pay: $1,910.00
Total Deductions: $393.88
Net Pay: $1,516.12`

func TestNormalizeSampleStub(t *testing.T) {
	rec := New(nil).Normalize(sampleStub, nil)

	if rec.EmployeeInfo.Name != "Jane Q. Doe" {
		t.Errorf("Name = %q, want Jane Q. Doe", rec.EmployeeInfo.Name)
	}
	if rec.EmployeeInfo.ID != "E-1042" {
		t.Errorf("ID = %q, want E-1042", rec.EmployeeInfo.ID)
	}
	if rec.EmployeeInfo.Department != "Warehouse" {
		t.Errorf("Department = %q", rec.EmployeeInfo.Department)
	}
	if rec.EmployerName != "Acme Widgets, Inc." {
		t.Errorf("EmployerName = %q", rec.EmployerName)
	}
	want := entity.PayPeriod{Start: "2024-01-01", End: "2024-01-14", PayDate: "2024-01-19"}
	if rec.PayPeriod != want {
		t.Errorf("PayPeriod = %+v, want %+v", rec.PayPeriod, want)
	}
	if rec.Totals.GrossPay != 1910 || rec.Totals.NetPay != 1516.12 || rec.Totals.TotalDeductions != 393.88 {
		t.Errorf("Totals = %+v", rec.Totals)
	}
	if rec.Work.RegularHours != 80 || rec.Work.HourlyRate != 20 {
		t.Errorf("regular hours/rate = %v/%v, want 80/20 from line items", rec.Work.RegularHours, rec.Work.HourlyRate)
	}
	if rec.Work.OvertimeHours != 5 || rec.Work.OvertimeRate != 30 {
		t.Errorf("overtime hours/rate = %v/%v, want 5/30", rec.Work.OvertimeHours, rec.Work.OvertimeRate)
	}
	if got := rec.FieldConfidence(constants.FieldRegularHours); got != confDerived {
		t.Errorf("derived regularHours confidence = %v, want %v", got, confDerived)
	}

	if len(rec.Earnings) != 3 {
		t.Fatalf("len(Earnings) = %d, want 3: %+v", len(rec.Earnings), rec.Earnings)
	}
	if rec.Earnings[2].Type != constants.EarningLeave || rec.Earnings[2].Hours != nil {
		t.Errorf("Earnings[2] = %+v, want leave without hours", rec.Earnings[2])
	}
	if len(rec.Deductions) != 5 {
		t.Fatalf("len(Deductions) = %d, want 5: %+v", len(rec.Deductions), rec.Deductions)
	}
	if d := rec.Deductions[4]; d.Type != constants.DeductionRetirement || d.Amount != 50 {
		t.Errorf("401k deduction = %+v", d)
	}
	if rec.Quality.Confidence <= 0 || rec.Quality.Confidence > 1 {
		t.Errorf("Quality.Confidence = %v", rec.Quality.Confidence)
	}
}

// renderStub prints a record the way a simple payroll system would.
func renderStub(r entity.NormalizedPayStubRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.EmployerName)
	fmt.Fprintf(&b, "Employee Name: %s  Employee ID: %s\n", r.EmployeeInfo.Name, r.EmployeeInfo.ID)
	fmt.Fprintf(&b, "Pay Period: %s to %s\n", r.PayPeriod.Start, r.PayPeriod.End)
	fmt.Fprintf(&b, "Regular Hours: %.2f\n", r.Work.RegularHours)
	fmt.Fprintf(&b, "Hourly Rate: $%.2f\n", r.Work.HourlyRate)
	for _, d := range r.Deductions {
		fmt.Fprintf(&b, "%s  %.2f\n", d.Description, d.Amount)
	}
	fmt.Fprintf(&b, "Gross Pay: $%.2f\n", r.Totals.GrossPay)
	fmt.Fprintf(&b, "Total Deductions: $%.2f\n", r.Totals.TotalDeductions)
	fmt.Fprintf(&b, "Net Pay: $%.2f\n", r.Totals.NetPay)
	return b.String()
}

func TestNormalizeRoundTrip(t *testing.T) {
	records := []entity.NormalizedPayStubRecord{
		{
			EmployeeInfo: entity.EmployeeInfo{Name: "Maria Lopez", ID: "1001"},
			EmployerName: "Sunrise Foods LLC",
			PayPeriod:    entity.PayPeriod{Start: "2024-03-01", End: "2024-03-15"},
			Deductions:   []entity.DeductionLine{{Description: "Federal Tax", Amount: 120}, {Description: "Medicare", Amount: 17.4}},
			Totals:       entity.Totals{GrossPay: 1200, NetPay: 1062.6, TotalDeductions: 137.4},
			Work:         entity.WorkSummary{RegularHours: 80, HourlyRate: 15},
		},
		{
			EmployeeInfo: entity.EmployeeInfo{Name: "Tom O'Brien", ID: "A-77"},
			EmployerName: "Bay Builders Corp",
			PayPeriod:    entity.PayPeriod{Start: "2023-12-18", End: "2023-12-31"},
			Totals:       entity.Totals{GrossPay: 2345.67, NetPay: 1999.99, TotalDeductions: 345.68},
			Work:         entity.WorkSummary{RegularHours: 72.5, HourlyRate: 32.35},
		},
	}
	n := New(nil)
	for _, want := range records {
		t.Run(want.EmployeeInfo.Name, func(t *testing.T) {
			got := n.Normalize(renderStub(want), nil)

			if got.EmployeeInfo.Name != want.EmployeeInfo.Name {
				t.Errorf("Name = %q, want %q", got.EmployeeInfo.Name, want.EmployeeInfo.Name)
			}
			if got.EmployerName != want.EmployerName {
				t.Errorf("EmployerName = %q, want %q", got.EmployerName, want.EmployerName)
			}
			if got.PayPeriod.Start != want.PayPeriod.Start || got.PayPeriod.End != want.PayPeriod.End {
				t.Errorf("PayPeriod = %+v, want %+v", got.PayPeriod, want.PayPeriod)
			}
			if got.Totals != want.Totals {
				t.Errorf("Totals = %+v, want %+v", got.Totals, want.Totals)
			}
			if got.Work.RegularHours != want.Work.RegularHours || got.Work.HourlyRate != want.Work.HourlyRate {
				t.Errorf("Work = %+v, want %+v", got.Work, want.Work)
			}
			for _, f := range constants.RequiredFields {
				if !got.HasField(f) {
					t.Errorf("required field %s not recovered", f)
				}
			}
			for _, f := range []constants.PayStubField{constants.FieldEmployeeName, constants.FieldGrossPay, constants.FieldNetPay} {
				if c := got.FieldConfidence(f); c < 0.9 {
					t.Errorf("confidence(%s) = %v, want >= 0.9", f, c)
				}
			}
		})
	}
}

func TestNormalizePrefersHints(t *testing.T) {
	hints := map[constants.PayStubField]entity.FieldHint{
		constants.FieldGrossPay:     {Value: "$2,000.00", Confidence: 0.82},
		constants.FieldEmployeeName: {Value: "alex kim", Confidence: 0.66},
		constants.FieldPayPeriod:    {Value: "2024-02-01 to 2024-02-15", Confidence: 0.9},
		constants.FieldNetPay:       {Value: "n/a", Confidence: 0.9},
	}
	rec := New(nil).Normalize("Gross Pay: $1,000.00\nNet Pay: $800.00", hints)
	if rec.Totals.GrossPay != 2000 {
		t.Errorf("GrossPay = %v, want hint value 2000", rec.Totals.GrossPay)
	}
	if got := rec.FieldConfidence(constants.FieldGrossPay); got != 0.82 {
		t.Errorf("grossPay confidence = %v, want hint confidence 0.82", got)
	}
	if rec.EmployeeInfo.Name != "Alex Kim" {
		t.Errorf("Name = %q, want title-cased hint", rec.EmployeeInfo.Name)
	}
	if rec.PayPeriod.Start != "2024-02-01" || rec.PayPeriod.End != "2024-02-15" {
		t.Errorf("PayPeriod = %+v", rec.PayPeriod)
	}
	if rec.Totals.NetPay != 800 {
		t.Errorf("NetPay = %v, want text value 800 after unusable hint", rec.Totals.NetPay)
	}
}

func TestRecordFromFields(t *testing.T) {
	rec, unknown := New(nil).RecordFromFields(map[string]entity.FieldHint{
		"regularHours":  {Value: 40.0, Confidence: 0.9},
		"overtimeHours": {Value: 8.0, Confidence: 0.9},
		"hourlyRate":    {Value: 16.0, Confidence: 0.9},
		"overtimeRate":  {Value: 22.0, Confidence: 0.9},
		"Federal Tax":   {Value: "45.10", Confidence: 0.8},
		"shoeSize":      {Value: 9.0, Confidence: 1},
	})
	if len(unknown) != 1 || unknown[0] != "shoeSize" {
		t.Errorf("unknown = %v, want [shoeSize]", unknown)
	}
	if rec.Work.TotalHours() != 48 {
		t.Errorf("TotalHours = %v, want 48", rec.Work.TotalHours())
	}
	if len(rec.Earnings) != 2 || rec.Earnings[1].Amount != 176 {
		t.Errorf("Earnings = %+v, want regular and overtime rows", rec.Earnings)
	}
	if len(rec.Deductions) != 1 || rec.Deductions[0].Amount != 45.1 {
		t.Errorf("Deductions = %+v", rec.Deductions)
	}
}

func TestExtractorPriority(t *testing.T) {
	text := "Jane Doe\nEmployee Name: John Smith"
	exs := Extractors(constants.FieldEmployeeName)
	if exs[0].Name != "employee-name-label" {
		t.Fatalf("first extractor = %s, want employee-name-label", exs[0].Name)
	}
	v, ok := exs[0].Apply(text)
	if !ok || v != "John Smith" {
		t.Errorf("labelled extractor = %q, %v", v, ok)
	}
	rec := New(nil).Normalize(text, nil)
	if rec.EmployeeInfo.Name != "John Smith" {
		t.Errorf("Name = %q, want labelled match to win over heuristic", rec.EmployeeInfo.Name)
	}
	heuristic := exs[len(exs)-1]
	if v, ok := heuristic.Apply("Acme Corp\n"); ok {
		t.Errorf("heuristic accepted company name %q", v)
	}
}

func TestParseDate(t *testing.T) {
	tests := map[string]string{
		"01/15/2024":       "2024-01-15",
		"1/5/2024":         "2024-01-05",
		"01-15-2024":       "2024-01-15",
		"2024-01-15":       "2024-01-15",
		"01/15/24":         "2024-01-15",
		"Jan 15, 2024":     "2024-01-15",
		"January 15, 2024": "2024-01-15",
		"Sept. 3, 2024":    "2024-09-03",
	}
	for in, want := range tests {
		if got, ok := ParseDate(in); !ok || got != want {
			t.Errorf("ParseDate(%q) = %q, %v, want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseDate("13/45/2024"); ok {
		t.Error("invalid date accepted")
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		desc      string
		deduction bool
		earning   constants.EarningType
	}{
		{"Double Time", false, constants.EarningDoubleTime},
		{"OT Premium", false, constants.EarningOvertime},
		{"Sick Leave", false, constants.EarningLeave},
		{"Shift Differential", false, constants.EarningPremium},
		{"Quarterly Bonus", false, constants.EarningBonus},
		{"Mileage", false, constants.EarningOther},
		{"Dental Insurance", true, ""},
		{"FICA", true, ""},
		{"401(k)", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := IsDeduction(tt.desc); got != tt.deduction {
				t.Fatalf("IsDeduction = %v, want %v", got, tt.deduction)
			}
			if !tt.deduction {
				if got := EarningTypeOf(tt.desc); got != tt.earning {
					t.Errorf("EarningTypeOf = %q, want %q", got, tt.earning)
				}
			}
		})
	}
}
