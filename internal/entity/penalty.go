package entity

import "github.com/skalingclouds/naitive-engage-suite-sub000/constants"

// WageContext supplies the pay figures penalty formulas need.
type WageContext struct {
	HourlyRate    float64 `json:"hourlyRate"`
	RegularHours  float64 `json:"regularHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	MinimumWage   float64 `json:"minimumWage,omitempty"`
}

// PenaltyKind buckets a per-violation amount in the breakdown.
type PenaltyKind string

const (
	PenaltyUnpaidWages PenaltyKind = "unpaid_wages"
	PenaltyStatutory   PenaltyKind = "statutory"
	PenaltyNotCharged  PenaltyKind = "not_charged"
)

// ViolationPenalty is the scaled amount attributed to one violation.
type ViolationPenalty struct {
	Type   constants.ViolationType `json:"violationType"`
	Kind   PenaltyKind             `json:"kind"`
	Amount float64                 `json:"amount"`
	Basis  string                  `json:"basis"`
}

// PenaltyBreakdown is derived from violations and never stored as the
// source of truth.
type PenaltyBreakdown struct {
	UnpaidWages          float64                 `json:"unpaidWages"`
	StatutoryPenalties   float64                 `json:"statutoryPenalties"`
	WaitingTimePenalties float64                 `json:"waitingTimePenalties"`
	Interest             float64                 `json:"interest"`
	TotalRecovery        float64                 `json:"totalRecovery"`
	PerViolation         []ViolationPenalty      `json:"perViolation"`
	Method               constants.PenaltyMethod `json:"method"`
	PeriodMonths         int                     `json:"periodMonths"`
}
