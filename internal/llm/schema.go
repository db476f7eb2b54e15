package llm

import "github.com/skalingclouds/naitive-engage-suite-sub000/constants"

// FieldMapSchema returns the JSON Schema (draft 2020-12 subset) a model
// field map must satisfy after sanitizing.
func FieldMapSchema() map[string]any {
	props := make(map[string]any)
	for _, f := range constants.AllFields() {
		value := map[string]any{"type": "string", "minLength": 1}
		if f.Numeric() {
			value = map[string]any{"type": "number"}
		}
		props[string(f)] = map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"value", "confidence"},
			"properties": map[string]any{
				"value":      value,
				"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			},
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// AnalyzeRequestSchema constrains the rules/analyze request body.
func AnalyzeRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"ocrData"},
		"properties": map[string]any{
			"ocrData": map[string]any{"type": "object", "minProperties": 1},
			"locationInfo": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city":    map[string]any{"type": "string"},
					"state":   map[string]any{"type": "string", "maxLength": 2},
					"zipCode": map[string]any{"type": "string"},
				},
			},
		},
	}
}

// PenaltyRequestSchema constrains the penalties/calculate request body.
func PenaltyRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"violations", "wageContext"},
		"properties": map[string]any{
			"violations": violationsProp(),
			"wageContext": map[string]any{
				"type":     "object",
				"required": []string{"hourlyRate"},
				"properties": map[string]any{
					"hourlyRate":    nonNegative(),
					"regularHours":  nonNegative(),
					"overtimeHours": nonNegative(),
					"minimumWage":   nonNegative(),
				},
			},
			"periodMonths": map[string]any{"type": "integer", "minimum": 1},
			"method":       map[string]any{"type": "string"},
		},
	}
}

// ComplianceRequestSchema constrains the compliance/score request body.
func ComplianceRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"violations"},
		"properties": map[string]any{
			"violations":      violationsProp(),
			"documentQuality": map[string]any{"type": "object"},
			"employerSize":    map[string]any{"type": "string"},
			"industry":        map[string]any{"type": "string"},
			"historicalScore": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
		},
	}
}

func violationsProp() map[string]any {
	var types []string
	for _, vt := range constants.AllViolationTypes() {
		types = append(types, string(vt))
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"violationType", "severity"},
			"properties": map[string]any{
				"violationType": map[string]any{"type": "string", "enum": types},
				"severity":      map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
				"confidence":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			},
		},
	}
}

func nonNegative() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0}
}
