package rules

import (
	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Summarize counts violations by severity.
func Summarize(vs []entity.Violation) entity.ViolationSummary {
	s := entity.ViolationSummary{TotalViolations: len(vs)}
	var sum float64
	for _, v := range vs {
		switch v.Severity {
		case constants.SeverityHigh:
			s.HighSeverity++
		case constants.SeverityMedium:
			s.MediumSeverity++
		case constants.SeverityLow:
			s.LowSeverity++
		}
		sum += v.Confidence
	}
	if len(vs) > 0 {
		s.AverageConfidence = sum / float64(len(vs))
	}
	return s
}

// EngineInfo names the rule set.
type EngineInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// RuleInfo describes one supported violation type.
type RuleInfo struct {
	Type               constants.ViolationType `json:"type"`
	Description        string                  `json:"description"`
	StatutoryReference string                  `json:"laborCode"`
	Severity           constants.Severity      `json:"severity"`
	Confidence         float64                 `json:"confidence"`
}

// Info is the rules info document.
type Info struct {
	RulesEngine         EngineInfo        `json:"rulesEngine"`
	SupportedViolations []RuleInfo        `json:"supportedViolations"`
	MinimumWageRates    map[string]string `json:"minimumWageRates"`
	Constants           map[string]string `json:"constants"`
}

// Info describes the engine's rule set, minimum wage table and thresholds.
func (e *Engine) Info() Info {
	rules := make([]RuleInfo, len(ruleTable))
	for i, r := range ruleTable {
		rules[i] = RuleInfo{
			Type:               r.Type,
			Description:        r.Description,
			StatutoryReference: r.Reference,
			Severity:           r.Severity,
			Confidence:         r.Confidence,
		}
	}
	return Info{
		RulesEngine: EngineInfo{
			Name:        "California Labor Code Rules Engine",
			Version:     Version,
			Description: "California wage and hour violation detection for pay stubs",
		},
		SupportedViolations: rules,
		MinimumWageRates:    e.minWages.Display(),
		Constants: map[string]string{
			"dailyOvertimeThreshold":   "8.0 hours",
			"weeklyOvertimeThreshold":  "40.0 hours",
			"dailyDoubleTimeThreshold": "12.0 hours",
			"overtimeMultiplier":       "1.5x",
			"doubleTimeMultiplier":     "2.0x",
			"mealBreakThreshold":       "5.0 hours",
			"secondMealBreakThreshold": "10.0 hours",
			"restBreakInterval":        "4.0 hours",
			"lowConfidenceThreshold":   "0.70",
		},
	}
}
