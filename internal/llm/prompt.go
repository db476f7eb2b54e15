package llm

import (
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// BuildVisionSystemPrompt composes the system message for reading a pay
// stub image into a field map.
func BuildVisionSystemPrompt() string {
	var fields []string
	for _, f := range constants.AllFields() {
		kind := "text"
		if f.Numeric() {
			kind = "number"
		}
		fields = append(fields, "- "+string(f)+" ("+kind+"): "+f.Label())
	}

	parts := []string{
		"You read California pay stubs. Return ONLY a JSON object, no prose and no code fences.",
		"Each key is one of the field names below; each value is an object {\"value\": ..., \"confidence\": 0..1}.",
		"Fields:\n" + strings.Join(fields, "\n"),
		"Numbers are plain JSON numbers without currency symbols or thousands separators.",
		"Dates are YYYY-MM-DD. For payPeriod use \"YYYY-MM-DD to YYYY-MM-DD\".",
		"Hours and rates are for the current period, not year-to-date.",
		"Omit any field that is not printed on the stub. Never output null.",
		"Confidence reflects how legible the printed value is, not whether it looks plausible.",
	}
	return strings.Join(parts, "\n")
}

// BuildVisionUserPrompt is the instruction sent next to the image.
func BuildVisionUserPrompt() string {
	return "Extract the pay stub fields from this document."
}
