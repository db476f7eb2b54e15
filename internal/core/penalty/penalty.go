package penalty

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

var (
	exposureDays       = decimal.NewFromInt(30)
	overtimePremium    = decimal.RequireFromString("0.5")
	mealBreakPenalty   = decimal.NewFromInt(50)
	restBreakPenalty   = decimal.NewFromInt(25)
	flatPenalty        = decimal.NewFromInt(100)
	waitingTimeHours   = decimal.NewFromInt(8)
	waitingTimeFactor  = decimal.RequireFromString("0.1")
	annualInterestRate = decimal.RequireFromString("0.10")
	monthsPerYear      = decimal.NewFromInt(12)
)

// MethodMultiplier returns the scale applied to every per-violation amount.
func MethodMultiplier(m constants.PenaltyMethod) decimal.Decimal {
	switch m {
	case constants.MethodConservative:
		return decimal.RequireFromString("0.8")
	case constants.MethodMaximum:
		return decimal.RequireFromString("1.5")
	}
	return decimal.NewFromInt(1)
}

// Calculate estimates the financial exposure of violations over
// periodMonths. It only sums, so the result does not depend on the order of
// violations. Daily and weekly overtime findings describe the same unpaid
// hours; only the larger of the two is charged. Double time and overtime
// rate findings charge only what the overtime premium leaves unpaid.
// Waiting time and interest apply to every estimate, including one with no
// violations.
func Calculate(violations []entity.Violation, wc entity.WageContext, periodMonths int, method constants.PenaltyMethod) (entity.PenaltyBreakdown, error) {
	m, ok := constants.ParsePenaltyMethod(string(method))
	v := common.NewValidator()
	if !ok {
		v.Field("method", string(method), common.Invalid("must be conservative, moderate or maximum"))
	}
	if periodMonths < 1 {
		v.Field("periodMonths", float64(periodMonths), common.Invalid("must be at least 1"))
	}
	v.Field("wageContext.hourlyRate", wc.HourlyRate, nonNegative).
		Field("wageContext.regularHours", wc.RegularHours, nonNegative).
		Field("wageContext.overtimeHours", wc.OvertimeHours, nonNegative).
		Field("wageContext.minimumWage", wc.MinimumWage, nonNegative)
	if err := v.Err(); err != nil {
		return entity.PenaltyBreakdown{}, err
	}

	scale := MethodMultiplier(m)
	months := decimal.NewFromInt(int64(periodMonths))

	per := make([]entity.ViolationPenalty, len(violations))
	amounts := make([]decimal.Decimal, len(violations))
	for i, vi := range violations {
		amount, kind, basis := base(vi, wc, months)
		amounts[i] = amount.Mul(scale)
		per[i] = entity.ViolationPenalty{Type: vi.Type, Kind: kind, Basis: basis}
	}
	dedupeOvertime(violations, amounts, per)

	var unpaid, statutory decimal.Decimal
	for i := range per {
		if per[i].Kind == entity.PenaltyNotCharged {
			continue
		}
		per[i].Amount = amounts[i].Round(2).InexactFloat64()
		switch per[i].Kind {
		case entity.PenaltyUnpaidWages:
			unpaid = unpaid.Add(amounts[i])
		default:
			statutory = statutory.Add(amounts[i])
		}
	}
	unpaid = unpaid.Round(2)
	statutory = statutory.Round(2)

	waiting := decimal.NewFromFloat(wc.HourlyRate).Mul(waitingTimeHours).Mul(months).Mul(waitingTimeFactor).Round(2)
	running := unpaid.Add(statutory).Add(waiting)
	interest := running.Mul(annualInterestRate).Mul(months).Div(monthsPerYear).Round(2)

	total := unpaid.Add(statutory).Add(waiting).Add(interest)
	return entity.PenaltyBreakdown{
		UnpaidWages:          unpaid.InexactFloat64(),
		StatutoryPenalties:   statutory.InexactFloat64(),
		WaitingTimePenalties: waiting.InexactFloat64(),
		Interest:             interest.InexactFloat64(),
		TotalRecovery:        total.InexactFloat64(),
		PerViolation:         per,
		Method:               m,
		PeriodMonths:         periodMonths,
	}, nil
}

// base returns the unscaled amount for one violation.
func base(v entity.Violation, wc entity.WageContext, months decimal.Decimal) (decimal.Decimal, entity.PenaltyKind, string) {
	switch v.Type {
	case constants.ViolationMinimumWage:
		minWage := valueOr(v.ExpectedValue, wc.MinimumWage)
		actual := valueOr(v.ActualValue, wc.HourlyRate)
		gap := decimal.Max(decimal.NewFromFloat(minWage).Sub(decimal.NewFromFloat(actual)), decimal.Zero)
		amount := gap.Mul(decimal.NewFromFloat(wc.RegularHours)).Mul(exposureDays)
		return amount, entity.PenaltyUnpaidWages,
			fmt.Sprintf("(%.2f - %.2f) x %s h x 30", minWage, actual, num(wc.RegularHours))

	case constants.ViolationDailyOvertime, constants.ViolationWeeklyOvertime:
		hours := overtimeHours(v, wc)
		amount := decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(wc.HourlyRate)).Mul(overtimePremium)
		return amount, entity.PenaltyUnpaidWages,
			fmt.Sprintf("%s h x %.2f x 0.5", num(hours), wc.HourlyRate)

	case constants.ViolationDoubleTime:
		// the hours were paid at 1.5x at best; the gap to 2x is half the rate
		hours := shortfall(v)
		amount := decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(wc.HourlyRate)).Mul(overtimePremium)
		return amount, entity.PenaltyUnpaidWages,
			fmt.Sprintf("%s h x %.2f x 0.5", num(hours), wc.HourlyRate)

	case constants.ViolationOvertimeRate:
		owed := valueOr(v.ExpectedValue, 0)
		paid := valueOr(v.ActualValue, owed)
		gap := decimal.Max(decimal.NewFromFloat(owed).Sub(decimal.NewFromFloat(paid)), decimal.Zero)
		amount := gap.Mul(decimal.NewFromFloat(wc.OvertimeHours))
		return amount, entity.PenaltyUnpaidWages,
			fmt.Sprintf("(%.2f - %.2f) x %s h", owed, paid, num(wc.OvertimeHours))

	case constants.ViolationMealBreak, constants.ViolationSecondMealBreak:
		return mealBreakPenalty.Mul(months), entity.PenaltyStatutory,
			fmt.Sprintf("50 x %s months", months)

	case constants.ViolationRestBreak:
		return restBreakPenalty.Mul(months), entity.PenaltyStatutory,
			fmt.Sprintf("25 x %s months", months)
	}
	return flatPenalty, entity.PenaltyStatutory, "flat 100"
}

// overtimeHours prefers the wage context; without it the violation's own
// shortfall is used.
func overtimeHours(v entity.Violation, wc entity.WageContext) float64 {
	if wc.OvertimeHours > 0 {
		return wc.OvertimeHours
	}
	return shortfall(v)
}

// shortfall is expected minus actual hours, never negative.
func shortfall(v entity.Violation) float64 {
	if v.ExpectedValue == nil {
		return 0
	}
	short := *v.ExpectedValue - valueOr(v.ActualValue, 0)
	if short < 0 {
		return 0
	}
	return short
}

// dedupeOvertime keeps the single largest daily/weekly overtime amount and
// marks the rest not charged. Ties go to the daily finding, then to the
// first occurrence, so the choice does not depend on input order beyond
// identical entries.
func dedupeOvertime(vs []entity.Violation, amounts []decimal.Decimal, per []entity.ViolationPenalty) {
	best := -1
	for i, v := range vs {
		if v.Type != constants.ViolationDailyOvertime && v.Type != constants.ViolationWeeklyOvertime {
			continue
		}
		if best < 0 || amounts[i].GreaterThan(amounts[best]) ||
			(amounts[i].Equal(amounts[best]) && v.Type == constants.ViolationDailyOvertime && vs[best].Type != constants.ViolationDailyOvertime) {
			best = i
		}
	}
	if best < 0 {
		return
	}
	for i, v := range vs {
		if i == best || (v.Type != constants.ViolationDailyOvertime && v.Type != constants.ViolationWeeklyOvertime) {
			continue
		}
		amounts[i] = decimal.Zero
		per[i].Kind = entity.PenaltyNotCharged
		per[i].Basis = "same hours charged under " + string(vs[best].Type)
	}
}

func valueOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}

func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func nonNegative(field string, value interface{}) *common.ValidationError {
	if f, ok := value.(float64); ok && f < 0 {
		return &common.ValidationError{Field: field, Value: value, Message: "must not be negative"}
	}
	return nil
}
