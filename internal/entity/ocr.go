package entity

import (
	"encoding/json"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// FieldHint is a provider-parsed value with its own confidence (0..1).
type FieldHint struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// UnmarshalJSON accepts {"value": v, "confidence": c} or a bare value,
// which is taken as certain.
func (h *FieldHint) UnmarshalJSON(b []byte) error {
	var obj struct {
		Value      any      `json:"value"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && (obj.Value != nil || obj.Confidence != nil) {
		h.Value = obj.Value
		h.Confidence = 1
		if obj.Confidence != nil {
			h.Confidence = *obj.Confidence
		}
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	h.Value, h.Confidence = v, 1
	return nil
}

// RawOCRResult is what a single OCR provider returned for a document.
type RawOCRResult struct {
	Provider        string                               `json:"provider"`
	Success         bool                                 `json:"success"`
	Confidence      float64                              `json:"confidence"` // 0..100
	ExtractedText   string                               `json:"extractedText"`
	StructuredHints map[constants.PayStubField]FieldHint `json:"structuredHints,omitempty"`
	PageCount       int                                  `json:"pageCount"`
	Error           string                               `json:"error,omitempty"`
	Duration        time.Duration                        `json:"-"`
}
