package constants

// EarningType sub-types an earnings line.
type EarningType string

const (
	EarningRegular    EarningType = "regular"
	EarningOvertime   EarningType = "overtime"
	EarningDoubleTime EarningType = "double_time"
	EarningPremium    EarningType = "premium"
	EarningBonus      EarningType = "bonus"
	EarningLeave      EarningType = "leave"
	EarningOther      EarningType = "other"
)

// DeductionType sub-types a deduction line.
type DeductionType string

const (
	DeductionTax        DeductionType = "tax"
	DeductionInsurance  DeductionType = "insurance"
	DeductionRetirement DeductionType = "retirement"
	DeductionOther      DeductionType = "other"
)
