package entity

import "github.com/skalingclouds/naitive-engage-suite-sub000/constants"

// Violation is one finding produced by the rules engine.
type Violation struct {
	Type               constants.ViolationType `json:"violationType"`
	Description        string                  `json:"description"`
	Severity           constants.Severity      `json:"severity"`
	Confidence         float64                 `json:"confidence"`
	StatutoryReference string                  `json:"statutoryReference"`
	ActualValue        *float64                `json:"actualValue,omitempty"`
	ExpectedValue      *float64                `json:"expectedValue,omitempty"`
	Recommendation     string                  `json:"recommendation,omitempty"`
}

// ViolationSummary counts violations by severity.
type ViolationSummary struct {
	TotalViolations   int     `json:"totalViolations"`
	HighSeverity      int     `json:"highSeverity"`
	MediumSeverity    int     `json:"mediumSeverity"`
	LowSeverity       int     `json:"lowSeverity"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// Float returns a pointer to v, for the optional Actual/Expected values.
func Float(v float64) *float64 { return &v }
