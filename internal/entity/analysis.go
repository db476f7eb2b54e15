package entity

import (
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// OCRSummary reports which provider produced the text the analysis used.
type OCRSummary struct {
	Provider           string            `json:"provider"`
	Confidence         float64           `json:"confidence"`
	CombinedConfidence float64           `json:"combinedConfidence"`
	PageCount          int               `json:"pageCount"`
	ProvidersTried     []string          `json:"providersTried"`
	ProviderErrors     map[string]string `json:"providerErrors,omitempty"`
}

// AnalysisReport is the combined output of one analysis.
type AnalysisReport struct {
	AnalysisID         string                  `json:"analysisId"`
	Location           LocationInfo            `json:"location"`
	OCR                OCRSummary              `json:"ocr"`
	Record             NormalizedPayStubRecord `json:"record"`
	Violations         []Violation             `json:"violations"`
	Summary            ViolationSummary        `json:"summary"`
	Penalty            PenaltyBreakdown        `json:"penalty"`
	Compliance         ComplianceScore         `json:"compliance"`
	RulesEngineVersion string                  `json:"rulesEngineVersion"`
	AnalysisTimestamp  time.Time               `json:"analysisTimestamp"`
}

// AnalysisState is what a poller sees for an analysis id. Report is only
// set once Status is completed.
type AnalysisState struct {
	AnalysisID string                   `json:"analysisId"`
	Status     constants.AnalysisStatus `json:"status"`
	Error      string                   `json:"error,omitempty"`
	ErrorCode  string                   `json:"errorCode,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
	UpdatedAt  time.Time                `json:"updatedAt"`
	Report     *AnalysisReport          `json:"report,omitempty"`
}
