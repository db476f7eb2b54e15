package entity

import "github.com/skalingclouds/naitive-engage-suite-sub000/constants"

// Benchmark compares a score with the employer's peer group.
type Benchmark struct {
	EmployerSize    constants.EmployerSize `json:"employerSize"`
	Industry        string                 `json:"industry,omitempty"`
	IndustryAverage float64                `json:"industryAverage"`
	Comparison      string                 `json:"comparison"`
}

// ComplianceScore is the graded outcome of an analysis.
type ComplianceScore struct {
	OverallScore   float64            `json:"overallScore"`
	Grade          string             `json:"grade"`
	RiskLevel      string             `json:"riskLevel"`
	CategoryScores map[string]float64 `json:"categoryScores"`
	Benchmark      Benchmark          `json:"benchmark"`
}
