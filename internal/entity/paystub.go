package entity

import "github.com/skalingclouds/naitive-engage-suite-sub000/constants"

// EmployeeInfo identifies the worker on the stub.
type EmployeeInfo struct {
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	Department string `json:"department,omitempty"`
}

// PayPeriod dates are YYYY-MM-DD; empty when not found.
type PayPeriod struct {
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	PayDate string `json:"payDate,omitempty"`
}

// EarningLine is one earnings row. Hours and Rate are nil when the row
// does not print them.
type EarningLine struct {
	Description string                `json:"description"`
	Hours       *float64              `json:"hours,omitempty"`
	Rate        *float64              `json:"rate,omitempty"`
	Amount      float64               `json:"amount"`
	Type        constants.EarningType `json:"type"`
}

// DeductionLine is one deduction row.
type DeductionLine struct {
	Description string                  `json:"description"`
	Amount      float64                 `json:"amount"`
	Type        constants.DeductionType `json:"type"`
}

// Totals are the stub's printed (or derived) summary amounts.
type Totals struct {
	GrossPay        float64 `json:"grossPay"`
	NetPay          float64 `json:"netPay"`
	TotalDeductions float64 `json:"totalDeductions"`
}

// WorkSummary carries hours and rates the rules engine needs.
type WorkSummary struct {
	RegularHours    float64 `json:"regularHours"`
	OvertimeHours   float64 `json:"overtimeHours"`
	DoubleTimeHours float64 `json:"doubleTimeHours"`
	HourlyRate      float64 `json:"hourlyRate"`
	OvertimeRate    float64 `json:"overtimeRate"`
	DoubleTimeRate  float64 `json:"doubleTimeRate"`
}

// TotalHours is regular + overtime + double time.
func (w WorkSummary) TotalHours() float64 {
	return w.RegularHours + w.OvertimeHours + w.DoubleTimeHours
}

// Quality describes how trustworthy the extracted record is.
// FieldConfidence holds one entry per extracted field (0..1).
type Quality struct {
	TextCompleteness float64                            `json:"textCompleteness"`
	DataCompleteness float64                            `json:"dataCompleteness"`
	Confidence       float64                            `json:"confidence"`
	Issues           []string                           `json:"issues"`
	FieldConfidence  map[constants.PayStubField]float64 `json:"fieldConfidence,omitempty"`
}

// NormalizedPayStubRecord is the provider-agnostic pay stub every
// downstream stage works from.
type NormalizedPayStubRecord struct {
	EmployeeInfo EmployeeInfo    `json:"employeeInfo"`
	EmployerName string          `json:"employerName,omitempty"`
	PayPeriod    PayPeriod       `json:"payPeriod"`
	Earnings     []EarningLine   `json:"earnings"`
	Deductions   []DeductionLine `json:"deductions"`
	Totals       Totals          `json:"totals"`
	Work         WorkSummary     `json:"work"`
	Quality      Quality         `json:"quality"`
}

// HasField reports whether the normalizer extracted f.
func (r NormalizedPayStubRecord) HasField(f constants.PayStubField) bool {
	_, ok := r.Quality.FieldConfidence[f]
	return ok
}

// FieldConfidence returns the confidence for f, or 0 when absent.
func (r NormalizedPayStubRecord) FieldConfidence(f constants.PayStubField) float64 {
	return r.Quality.FieldConfidence[f]
}

// Clone returns a deep copy so stages never share slices or maps.
func (r NormalizedPayStubRecord) Clone() NormalizedPayStubRecord {
	out := r
	if r.Earnings != nil {
		out.Earnings = make([]EarningLine, len(r.Earnings))
		for i, e := range r.Earnings {
			out.Earnings[i] = e
			if e.Hours != nil {
				h := *e.Hours
				out.Earnings[i].Hours = &h
			}
			if e.Rate != nil {
				rt := *e.Rate
				out.Earnings[i].Rate = &rt
			}
		}
	}
	if r.Deductions != nil {
		out.Deductions = append([]DeductionLine(nil), r.Deductions...)
	}
	if r.Quality.Issues != nil {
		out.Quality.Issues = append([]string(nil), r.Quality.Issues...)
	}
	if r.Quality.FieldConfidence != nil {
		out.Quality.FieldConfidence = make(map[constants.PayStubField]float64, len(r.Quality.FieldConfidence))
		for k, v := range r.Quality.FieldConfidence {
			out.Quality.FieldConfidence[k] = v
		}
	}
	return out
}
