package llm

import (
	"encoding/json"
	"fmt"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// ExtractedField is one entry of a model field map.
type ExtractedField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"` // 0..1
}

// FieldMap is the JSON object a model returns: canonical field name to
// {value, confidence}.
type FieldMap map[string]ExtractedField

// ParseFieldMap sanitizes raw model output, validates it against
// FieldMapSchema and decodes it. The sanitized bytes are returned for
// logging even on validation failure.
func ParseFieldMap(raw []byte) (FieldMap, []byte, error) {
	cleaned, _, err := SanitizeFieldMap(raw)
	if err != nil {
		return nil, raw, err
	}
	if err := ValidateJSONAgainstSchema(FieldMapSchema(), cleaned); err != nil {
		return nil, cleaned, err
	}
	var fm FieldMap
	if err := json.Unmarshal(cleaned, &fm); err != nil {
		return nil, cleaned, fmt.Errorf("unmarshal field map: %w", err)
	}
	return fm, cleaned, nil
}

// Hints converts the map into structured OCR hints keyed by field.
func (fm FieldMap) Hints() map[constants.PayStubField]entity.FieldHint {
	out := make(map[constants.PayStubField]entity.FieldHint, len(fm))
	for k, v := range fm {
		f, ok := constants.ParseField(k)
		if !ok {
			continue
		}
		out[f] = entity.FieldHint{Value: v.Value, Confidence: v.Confidence}
	}
	return out
}

// MeanConfidence is the average field confidence, 0 for an empty map.
func (fm FieldMap) MeanConfidence() float64 {
	if len(fm) == 0 {
		return 0
	}
	var sum float64
	for _, v := range fm {
		sum += v.Confidence
	}
	return sum / float64(len(fm))
}
