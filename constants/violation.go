package constants

import "strings"

// ViolationType is the closed set of findings the rules engine can produce.
// The string value is the human-facing name carried in API responses.
type ViolationType string

const (
	ViolationDailyOvertime       ViolationType = "Daily Overtime Violation"
	ViolationWeeklyOvertime      ViolationType = "Weekly Overtime Violation"
	ViolationDoubleTime          ViolationType = "Double Time Violation"
	ViolationOvertimeRate        ViolationType = "Overtime Rate Violation"
	ViolationMealBreak           ViolationType = "Meal Break Violation"
	ViolationSecondMealBreak     ViolationType = "Second Meal Break Violation"
	ViolationRestBreak           ViolationType = "Rest Break Violation"
	ViolationMinimumWage         ViolationType = "Minimum Wage Violation"
	ViolationPayStubRequirements ViolationType = "Pay Stub Requirements Violation"
	ViolationPayStubReadability  ViolationType = "Pay Stub Readability Issue"
	ViolationPayCalculation      ViolationType = "Pay Calculation Discrepancy"
)

var allViolationTypes = []ViolationType{
	ViolationDailyOvertime,
	ViolationWeeklyOvertime,
	ViolationDoubleTime,
	ViolationOvertimeRate,
	ViolationMealBreak,
	ViolationSecondMealBreak,
	ViolationRestBreak,
	ViolationMinimumWage,
	ViolationPayStubRequirements,
	ViolationPayStubReadability,
	ViolationPayCalculation,
}

// AllViolationTypes returns every violation type in rule-table order.
func AllViolationTypes() []ViolationType {
	out := make([]ViolationType, len(allViolationTypes))
	copy(out, allViolationTypes)
	return out
}

// ParseViolationType resolves a display name (case-insensitive) to its type.
func ParseViolationType(s string) (ViolationType, bool) {
	s = strings.TrimSpace(s)
	for _, vt := range allViolationTypes {
		if strings.EqualFold(s, string(vt)) {
			return vt, true
		}
	}
	return "", false
}

// ViolationCategory groups violation types for scoring and penalty purposes.
type ViolationCategory string

const (
	CategoryWages         ViolationCategory = "wages"
	CategoryOvertime      ViolationCategory = "overtime"
	CategoryBreaks        ViolationCategory = "breaks"
	CategoryRecordkeeping ViolationCategory = "recordkeeping"
)

// AllViolationCategories lists the compliance sub-score categories.
func AllViolationCategories() []ViolationCategory {
	return []ViolationCategory{CategoryWages, CategoryOvertime, CategoryBreaks, CategoryRecordkeeping}
}

// Category returns the category a violation type belongs to.
func (v ViolationType) Category() ViolationCategory {
	switch v {
	case ViolationMinimumWage, ViolationPayCalculation:
		return CategoryWages
	case ViolationDailyOvertime, ViolationWeeklyOvertime, ViolationDoubleTime, ViolationOvertimeRate:
		return CategoryOvertime
	case ViolationMealBreak, ViolationSecondMealBreak, ViolationRestBreak:
		return CategoryBreaks
	case ViolationPayStubRequirements, ViolationPayStubReadability:
		return CategoryRecordkeeping
	}
	return CategoryRecordkeeping
}

// Severity of a violation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities: high > medium > low > unknown.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s.Rank() > 0 }
