package server

import (
	"net/http"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/compliance"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/penalty"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/rules"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

type analyzeRequest struct {
	OCRData      map[string]entity.FieldHint `json:"ocrData"`
	LocationInfo *entity.LocationInfo        `json:"locationInfo,omitempty"`
}

type analyzeResponse struct {
	Violations         []entity.Violation      `json:"violations"`
	Summary            entity.ViolationSummary `json:"summary"`
	AnalysisTimestamp  time.Time               `json:"analysisTimestamp"`
	RulesEngineVersion string                  `json:"rulesEngineVersion"`
	IgnoredFields      []string                `json:"ignoredFields,omitempty"`
}

func (s *Server) handleRulesAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, s.analyzeSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	var loc entity.LocationInfo
	if req.LocationInfo != nil {
		loc = *req.LocationInfo
	}
	loc = loc.WithDefaults()

	record, ignored := s.proc.Normalizer().RecordFromFields(req.OCRData)
	violations, err := s.proc.Engine().EvaluateChecked(record, loc)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log(r.Context()).Info("rules.analyze.ok", "violations", len(violations), "ignored_fields", len(ignored))
	writeJSON(w, http.StatusOK, analyzeResponse{
		Violations:         violations,
		Summary:            rules.Summarize(violations),
		AnalysisTimestamp:  time.Now().UTC(),
		RulesEngineVersion: rules.Version,
		IgnoredFields:      ignored,
	})
}

func (s *Server) handleRulesInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.proc.Engine().Info())
}

type penaltyRequest struct {
	Violations   []entity.Violation `json:"violations"`
	WageContext  entity.WageContext `json:"wageContext"`
	PeriodMonths int                `json:"periodMonths"`
	Method       string             `json:"method"`
}

func (s *Server) handlePenalties(w http.ResponseWriter, r *http.Request) {
	var req penaltyRequest
	if err := decodeJSON(w, r, s.penaltySchema, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PeriodMonths == 0 {
		req.PeriodMonths = 1
	}
	out, err := penalty.Calculate(req.Violations, req.WageContext, req.PeriodMonths, constants.PenaltyMethod(req.Method))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type complianceRequest struct {
	Violations      []entity.Violation `json:"violations"`
	DocumentQuality *entity.Quality    `json:"documentQuality,omitempty"`
	EmployerSize    string             `json:"employerSize"`
	Industry        string             `json:"industry,omitempty"`
	HistoricalScore *float64           `json:"historicalScore,omitempty"`
}

func (s *Server) handleCompliance(w http.ResponseWriter, r *http.Request) {
	var req complianceRequest
	if err := decodeJSON(w, r, s.complianceSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := compliance.Score(req.Violations, compliance.Options{
		DocumentQuality: req.DocumentQuality,
		EmployerSize:    constants.EmployerSize(req.EmployerSize),
		Industry:        req.Industry,
		HistoricalScore: req.HistoricalScore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
