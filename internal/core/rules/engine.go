package rules

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Version is reported with every evaluation.
const Version = "1.0.0"

// Thresholds and multipliers of the California baseline.
const (
	DailyOvertimeThreshold   = 8.0
	WeeklyOvertimeThreshold  = 40.0
	DoubleTimeThreshold      = 12.0
	OvertimeMultiplier       = 1.5
	DoubleTimeMultiplier     = 2.0
	MealBreakThreshold       = 5.0
	SecondMealBreakThreshold = 10.0
	RestBreakInterval        = 4.0
	RestBreakMinutes         = 10.0
	LowConfidenceThreshold   = 0.70
	PayCalculationTolerance  = 0.05
)

// Statutory references.
const (
	RefOvertime      = "CA Labor Code § 510"
	RefMealBreak     = "CA Labor Code § 512"
	RefWageStatement = "CA Labor Code § 226"
	RefMinimumWage   = "CA Labor Code § 1182.12"
)

// input is what every rule sees.
type input struct {
	rec     entity.NormalizedPayStubRecord
	work    entity.WorkSummary
	total   float64
	minWage float64 // 0 when the jurisdiction is unsupported
}

// rule is one row of the rule table. Confidence is a property of the rule,
// not of the data it ran on.
type rule struct {
	Type        constants.ViolationType
	Severity    constants.Severity
	Confidence  float64
	Reference   string
	Description string
	check       func(r rule, in input) []entity.Violation
}

func (r rule) violation(description string, actual, expected *float64, recommendation string) entity.Violation {
	return entity.Violation{
		Type:               r.Type,
		Description:        description,
		Severity:           r.Severity,
		Confidence:         r.Confidence,
		StatutoryReference: r.Reference,
		ActualValue:        actual,
		ExpectedValue:      expected,
		Recommendation:     recommendation,
	}
}

var ruleTable = []rule{
	{
		Type: constants.ViolationDailyOvertime, Severity: constants.SeverityHigh, Confidence: 0.95, Reference: RefOvertime,
		Description: "Overtime pay for hours over 8 per day",
		check:       checkDailyOvertime,
	},
	{
		Type: constants.ViolationWeeklyOvertime, Severity: constants.SeverityHigh, Confidence: 0.90, Reference: RefOvertime,
		Description: "Overtime pay for hours over 40 per week",
		check:       checkWeeklyOvertime,
	},
	{
		Type: constants.ViolationDoubleTime, Severity: constants.SeverityHigh, Confidence: 0.88, Reference: RefOvertime,
		Description: "Double time pay for hours over 12 per day",
		check:       checkDoubleTime,
	},
	{
		Type: constants.ViolationOvertimeRate, Severity: constants.SeverityHigh, Confidence: 0.95, Reference: RefOvertime,
		Description: "Overtime rate of at least 1.5x the regular rate",
		check:       checkOvertimeRate,
	},
	{
		Type: constants.ViolationMealBreak, Severity: constants.SeverityMedium, Confidence: 0.85, Reference: RefMealBreak,
		Description: "Required meal break for shifts of 5 hours or more",
		check:       checkMealBreak,
	},
	{
		Type: constants.ViolationSecondMealBreak, Severity: constants.SeverityMedium, Confidence: 0.90, Reference: RefMealBreak,
		Description: "Second meal break for shifts of 10 hours or more",
		check:       checkSecondMealBreak,
	},
	{
		Type: constants.ViolationRestBreak, Severity: constants.SeverityMedium, Confidence: 0.80, Reference: RefWageStatement,
		Description: "Paid 10-minute rest break for every 4 hours worked",
		check:       checkRestBreak,
	},
	{
		Type: constants.ViolationMinimumWage, Severity: constants.SeverityHigh, Confidence: 0.98, Reference: RefMinimumWage,
		Description: "Hourly rate below the applicable minimum wage",
		check:       checkMinimumWage,
	},
	{
		Type: constants.ViolationPayStubRequirements, Severity: constants.SeverityMedium, Confidence: 0.95, Reference: RefWageStatement,
		Description: "Required information missing from the wage statement",
		check:       checkRequiredFields,
	},
	{
		Type: constants.ViolationPayStubReadability, Severity: constants.SeverityLow, Confidence: 0.75, Reference: RefWageStatement,
		Description: "Required information extracted with low confidence",
		check:       checkReadability,
	},
	{
		Type: constants.ViolationPayCalculation, Severity: constants.SeverityMedium, Confidence: 0.85, Reference: RefWageStatement,
		Description: "Gross pay does not match hours times rates",
		check:       checkPayCalculation,
	},
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinimumWages replaces the city minimum-wage table.
func WithMinimumWages(t MinimumWageTable) Option {
	return func(e *Engine) {
		e.minWages = make(MinimumWageTable, len(t))
		for k, v := range t {
			e.minWages[cityKey(k)] = v
		}
	}
}

// Engine evaluates a normalized pay stub against the California rule set.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	minWages MinimumWageTable
}

func New(opts ...Option) *Engine {
	e := &Engine{minWages: DefaultMinimumWages()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplicableMinimumWage looks up the city rate, defaulting to the state rate.
func (e *Engine) ApplicableMinimumWage(loc entity.LocationInfo) (float64, error) {
	loc = loc.WithDefaults()
	if loc.State != entity.DefaultState {
		return 0, UnsupportedJurisdiction(loc.State)
	}
	return e.minWages.Lookup(loc.City), nil
}

// Evaluate runs every rule and returns the findings most important first.
// Outside California the minimum-wage rule is skipped; use EvaluateChecked
// to reject such locations instead.
func (e *Engine) Evaluate(rec entity.NormalizedPayStubRecord, loc entity.LocationInfo) []entity.Violation {
	in := input{rec: rec, work: rec.Work, total: rec.Work.TotalHours()}
	if mw, err := e.ApplicableMinimumWage(loc); err == nil {
		in.minWage = mw
	}

	out := make([]entity.Violation, 0)
	for _, r := range ruleTable {
		out = append(out, r.check(r, in)...)
	}
	Sort(out)
	return out
}

// EvaluateChecked is Evaluate with an UNSUPPORTED_JURISDICTION error for
// locations the engine has no rules for.
func (e *Engine) EvaluateChecked(rec entity.NormalizedPayStubRecord, loc entity.LocationInfo) ([]entity.Violation, error) {
	if _, err := e.ApplicableMinimumWage(loc); err != nil {
		return nil, err
	}
	return e.Evaluate(rec, loc), nil
}

// Sort orders violations by severity then confidence, both descending.
// Equal keys keep their rule-table order.
func Sort(vs []entity.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		ri, rj := vs[i].Severity.Rank(), vs[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return vs[i].Confidence > vs[j].Confidence
	})
}

func checkDailyOvertime(r rule, in input) []entity.Violation {
	expected := in.total - DailyOvertimeThreshold
	if in.total <= DailyOvertimeThreshold || in.work.OvertimeHours >= expected {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Employee worked %s hours but was paid for only %s overtime hours; hours over 8 in a day are owed at 1.5x the regular rate.",
			hours(in.total), hours(in.work.OvertimeHours)),
		entity.Float(in.work.OvertimeHours), entity.Float(expected),
		"Pay every hour over 8 in a workday at 1.5x the regular rate",
	)}
}

func checkWeeklyOvertime(r rule, in input) []entity.Violation {
	expected := in.total - WeeklyOvertimeThreshold
	if in.total <= WeeklyOvertimeThreshold || in.work.OvertimeHours >= expected {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Employee worked %s hours in the week but was paid for only %s overtime hours; hours over 40 in a week are owed at 1.5x the regular rate.",
			hours(in.total), hours(in.work.OvertimeHours)),
		entity.Float(in.work.OvertimeHours), entity.Float(expected),
		"Pay every hour over 40 in a workweek at 1.5x the regular rate",
	)}
}

func checkDoubleTime(r rule, in input) []entity.Violation {
	expected := in.total - DoubleTimeThreshold
	if in.total <= DoubleTimeThreshold || in.work.DoubleTimeHours >= expected {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Employee worked %s hours but was paid for only %s double time hours; hours over 12 in a day are owed at 2x the regular rate.",
			hours(in.total), hours(in.work.DoubleTimeHours)),
		entity.Float(in.work.DoubleTimeHours), entity.Float(expected),
		"Pay every hour over 12 in a workday at 2x the regular rate",
	)}
}

// ExpectedOvertimeRate is 1.5x the hourly rate rounded half-up to cents.
func ExpectedOvertimeRate(hourly float64) float64 {
	return decimal.NewFromFloat(hourly).Mul(decimal.NewFromFloat(OvertimeMultiplier)).Round(2).InexactFloat64()
}

func checkOvertimeRate(r rule, in input) []entity.Violation {
	if in.work.OvertimeRate <= 0 || in.work.HourlyRate <= 0 {
		return nil
	}
	expected := ExpectedOvertimeRate(in.work.HourlyRate)
	if in.work.OvertimeRate >= expected {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Overtime rate of $%.2f/hr is below the required $%.2f/hr (1.5x the regular rate).", in.work.OvertimeRate, expected),
		entity.Float(in.work.OvertimeRate), entity.Float(expected),
		"Pay overtime at 1.5x the regular hourly rate",
	)}
}

func checkMealBreak(r rule, in input) []entity.Violation {
	if in.total < MealBreakThreshold || in.total >= SecondMealBreakThreshold {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Employee worked %s hours and may not have received the 30-minute meal break owed for shifts over 5 hours.", hours(in.total)),
		nil, nil,
		"Provide a 30-minute meal break for shifts over 5 hours or pay one hour of premium pay",
	)}
}

func checkSecondMealBreak(r rule, in input) []entity.Violation {
	if in.total < SecondMealBreakThreshold {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Employee worked %s hours and may not have received the second meal break owed for shifts over 10 hours.", hours(in.total)),
		nil, nil,
		"Provide a second 30-minute meal break for shifts over 10 hours or pay an additional premium",
	)}
}

func checkRestBreak(r rule, in input) []entity.Violation {
	blocks := int(math.Floor(in.total / RestBreakInterval))
	if blocks < 1 {
		return nil
	}
	var expected *float64
	if in.work.HourlyRate > 0 {
		expected = entity.Float(round2(RestBreakMinutes / 60 * in.work.HourlyRate))
	}
	out := make([]entity.Violation, 0, blocks)
	for i := 1; i <= blocks; i++ {
		out = append(out, r.violation(
			fmt.Sprintf("Rest break %d of %d: employee worked %s hours and is owed a paid 10-minute rest break for every 4 hours worked.", i, blocks, hours(in.total)),
			entity.Float(0), expected,
			"Provide paid 10-minute rest breaks for every 4 hours worked",
		))
	}
	return out
}

func checkMinimumWage(r rule, in input) []entity.Violation {
	if in.minWage <= 0 || in.work.HourlyRate <= 0 || in.work.HourlyRate >= in.minWage {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Hourly rate of $%.2f/hr is below the applicable minimum wage of $%.2f/hr.", in.work.HourlyRate, in.minWage),
		entity.Float(in.work.HourlyRate), entity.Float(in.minWage),
		fmt.Sprintf("Raise the hourly rate to at least the minimum wage of $%.2f/hr", in.minWage),
	)}
}

func checkRequiredFields(r rule, in input) []entity.Violation {
	var missing []string
	for _, f := range constants.RequiredFields {
		if !in.rec.HasField(f) {
			missing = append(missing, f.Label())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Missing required information on pay stub: %s. California requires an itemized wage statement.", strings.Join(missing, ", ")),
		nil, nil,
		"Include every required item on the wage statement",
	)}
}

func checkReadability(r rule, in input) []entity.Violation {
	var low []string
	for _, f := range constants.RequiredFields {
		if in.rec.HasField(f) && in.rec.FieldConfidence(f) < LowConfidenceThreshold {
			low = append(low, f.Label())
		}
	}
	if len(low) == 0 {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Low confidence extraction for: %s. The pay stub may be unclear or incomplete.", strings.Join(low, ", ")),
		nil, nil,
		"Make sure the pay stub is legible and complete",
	)}
}

// checkPayCalculation compares gross pay with hours times rates. Missing
// premium rates are assumed to be the statutory multiples.
func checkPayCalculation(r rule, in input) []entity.Violation {
	w := in.work
	gross := in.rec.Totals.GrossPay
	if gross <= 0 || w.RegularHours <= 0 || w.HourlyRate <= 0 {
		return nil
	}
	otRate, dtRate := w.OvertimeRate, w.DoubleTimeRate
	if otRate <= 0 {
		otRate = w.HourlyRate * OvertimeMultiplier
	}
	if dtRate <= 0 {
		dtRate = w.HourlyRate * DoubleTimeMultiplier
	}
	calculated := round2(w.RegularHours*w.HourlyRate + w.OvertimeHours*otRate + w.DoubleTimeHours*dtRate)
	if math.Abs(gross-calculated) <= calculated*PayCalculationTolerance {
		return nil
	}
	return []entity.Violation{r.violation(
		fmt.Sprintf("Gross pay ($%.2f) does not match the amount calculated from hours and rates ($%.2f).", gross, calculated),
		entity.Float(gross), entity.Float(calculated),
		"Review and correct the pay calculation",
	)}
}

func hours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
