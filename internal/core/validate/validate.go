// Package validate checks a normalized pay stub for internal consistency
// and scores how complete the extraction is.
package validate

import (
	"fmt"
	"math"
	"regexp"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Tolerance is the largest money difference treated as equal.
const Tolerance = 0.01

// Issue messages without amounts, exported so callers can match them.
const (
	IssueMissingEmployeeName = "missing employee name"
	IssueNonPositiveGross    = "gross pay is zero or negative"
	IssueNegativeNet         = "net pay is negative"
	IssueNetExceedsGross     = "net pay exceeds gross pay"
	IssueNoEarnings          = "no earnings line items found"
)

func differs(a, b float64) bool {
	return math.Abs(a-b) > Tolerance+1e-9
}

// Validate returns one issue per failed check. It never fails and never
// modifies rec.
func Validate(rec entity.NormalizedPayStubRecord) []string {
	issues := []string{}
	t := rec.Totals

	if rec.EmployeeInfo.Name == "" {
		issues = append(issues, IssueMissingEmployeeName)
	}
	if t.GrossPay <= 0 {
		issues = append(issues, IssueNonPositiveGross)
	}
	if t.NetPay < 0 {
		issues = append(issues, IssueNegativeNet)
	}
	if t.NetPay > t.GrossPay {
		issues = append(issues, IssueNetExceedsGross)
	}

	var sum float64
	for _, d := range rec.Deductions {
		sum += d.Amount
	}
	if differs(sum, t.TotalDeductions) {
		issues = append(issues, fmt.Sprintf("deduction line items (%.2f) do not match total deductions (%.2f)", sum, t.TotalDeductions))
	}
	if expected := t.GrossPay - t.TotalDeductions; differs(expected, t.NetPay) {
		issues = append(issues, fmt.Sprintf("gross pay minus deductions (%.2f) does not match net pay (%.2f)", expected, t.NetPay))
	}
	if len(rec.Earnings) == 0 {
		issues = append(issues, IssueNoEarnings)
	}
	return issues
}

// textMarkers are the six things a readable pay stub prints.
var textMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(name|employee)\b`),
	regexp.MustCompile(`(?i)\b(period|date)\b`),
	regexp.MustCompile(`(?i)\b(gross|earnings)\b`),
	regexp.MustCompile(`(?i)\b(net|take[\s\-]?home)\b`),
	regexp.MustCompile(`(?i)\b(deductions?|tax(es)?)\b`),
	regexp.MustCompile(`\$?\d[\d,]*\.\d{2}\b`),
}

// TextCompleteness scores 0..100 by how many of the six expected markers
// appear in the raw text.
func TextCompleteness(rawText string) float64 {
	if rawText == "" {
		return 0
	}
	found := 0
	for _, m := range textMarkers {
		if m.MatchString(rawText) {
			found++
		}
	}
	return round2(float64(found) / float64(len(textMarkers)) * 100)
}

// DataCompleteness is a weighted 0..100 score: employee info 30, pay
// period 20, earnings detail 25, totals 25. Each sub-criterion adds its
// share only when present.
func DataCompleteness(rec entity.NormalizedPayStubRecord) float64 {
	score := 0.0
	add := func(ok bool, share float64) {
		if ok {
			score += share
		}
	}

	add(rec.EmployeeInfo.Name != "", 20)
	add(rec.EmployeeInfo.ID != "", 10)

	add(rec.PayPeriod.Start != "" && rec.PayPeriod.End != "", 15)
	add(rec.PayPeriod.PayDate != "", 5)

	hasHours, hasRate := rec.Work.TotalHours() > 0, rec.Work.HourlyRate > 0
	for _, e := range rec.Earnings {
		hasHours = hasHours || e.Hours != nil
		hasRate = hasRate || e.Rate != nil
	}
	add(len(rec.Earnings) > 0, 10)
	add(hasHours, 10)
	add(hasRate, 5)

	add(rec.Totals.GrossPay > 0, 10)
	add(rec.Totals.NetPay > 0, 10)
	add(rec.Totals.TotalDeductions > 0 || len(rec.Deductions) > 0, 5)

	return score
}

// Annotate returns a copy of rec with the quality block filled from the
// checks above. Field and record confidence are kept.
func Annotate(rec entity.NormalizedPayStubRecord, rawText string) entity.NormalizedPayStubRecord {
	out := rec.Clone()
	out.Quality.TextCompleteness = TextCompleteness(rawText)
	out.Quality.DataCompleteness = DataCompleteness(rec)
	out.Quality.Issues = Validate(rec)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
