// Package normalize turns OCR output (free text plus optional structured
// hints) into a provider-agnostic pay-stub record.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Normalizer is stateless; one instance may serve concurrent analyses.
type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// fields collects resolved values before they are laid out on the record.
type fields struct {
	text map[constants.PayStubField]string
	num  map[constants.PayStubField]float64
	conf map[constants.PayStubField]float64
}

func (f fields) set(field constants.PayStubField, printed string, conf float64) bool {
	if field.Numeric() {
		v, ok := common.ParseAmount(printed)
		if !ok {
			return false
		}
		f.num[field] = v
	} else {
		f.text[field] = printed
	}
	f.conf[field] = conf
	return true
}

func (f fields) has(field constants.PayStubField) bool {
	_, ok := f.conf[field]
	return ok
}

// Normalize builds a record from rawText, preferring hints for any field
// they supply. The quality block carries per-field and mean confidence;
// completeness scores and issues are left to the validator.
func (n *Normalizer) Normalize(rawText string, hints map[constants.PayStubField]entity.FieldHint) entity.NormalizedPayStubRecord {
	f := fields{
		text: make(map[constants.PayStubField]string),
		num:  make(map[constants.PayStubField]float64),
		conf: make(map[constants.PayStubField]float64),
	}

	for _, field := range constants.AllFields() {
		if h, ok := hints[field]; ok && n.applyHint(f, field, h) {
			continue
		}
		for _, ex := range extractors[field] {
			v, ok := ex.Apply(rawText)
			if !ok || !f.set(field, v, ex.Confidence) {
				continue
			}
			n.logger.Debug("normalize.field.matched", "field", field, "extractor", ex.Name, "confidence", ex.Confidence)
			break
		}
	}

	earnings, deductions := ExtractLineItems(rawText)
	deriveFromLines(f, earnings, deductions)
	if len(earnings) == 0 {
		earnings = synthesizeEarnings(f)
	}
	if len(deductions) == 0 {
		deductions = synthesizeDeductions(f)
	}

	rec := entity.NormalizedPayStubRecord{
		EmployeeInfo: entity.EmployeeInfo{
			Name:       titleCase(f.text[constants.FieldEmployeeName]),
			ID:         f.text[constants.FieldEmployeeID],
			Department: f.text[constants.FieldDepartment],
		},
		EmployerName: f.text[constants.FieldEmployerName],
		PayPeriod:    entity.PayPeriod{PayDate: f.text[constants.FieldPayDate]},
		Earnings:     earnings,
		Deductions:   deductions,
		Totals: entity.Totals{
			GrossPay:        f.num[constants.FieldGrossPay],
			NetPay:          f.num[constants.FieldNetPay],
			TotalDeductions: f.num[constants.FieldTotalDeductions],
		},
		Work: entity.WorkSummary{
			RegularHours:    f.num[constants.FieldRegularHours],
			OvertimeHours:   f.num[constants.FieldOvertimeHours],
			DoubleTimeHours: f.num[constants.FieldDoubleTimeHours],
			HourlyRate:      f.num[constants.FieldHourlyRate],
			OvertimeRate:    f.num[constants.FieldOvertimeRate],
			DoubleTimeRate:  f.num[constants.FieldDoubleTimeRate],
		},
		Quality: entity.Quality{
			Issues:          []string{},
			FieldConfidence: f.conf,
		},
	}
	if p := f.text[constants.FieldPayPeriod]; p != "" {
		rec.PayPeriod.Start, rec.PayPeriod.End, _ = ParseRange(p)
	}
	if rec.Earnings == nil {
		rec.Earnings = []entity.EarningLine{}
	}
	if rec.Deductions == nil {
		rec.Deductions = []entity.DeductionLine{}
	}

	if len(f.conf) > 0 {
		var sum float64
		for _, c := range f.conf {
			sum += c
		}
		rec.Quality.Confidence = round(sum/float64(len(f.conf)), 4)
	}
	return rec
}

// applyHint stores a provider-parsed value. Values that cannot be read
// for the field's kind are ignored so text extraction can try.
func (n *Normalizer) applyHint(f fields, field constants.PayStubField, h entity.FieldHint) bool {
	conf := min(max(h.Confidence, 0), 1)
	switch {
	case field.Numeric():
		v, ok := common.AnyToFloat(h.Value)
		if !ok {
			return false
		}
		f.num[field] = v
	case field == constants.FieldPayPeriod:
		start, end, ok := hintRange(h.Value)
		if !ok {
			return false
		}
		f.text[field] = start + " to " + end
	case field == constants.FieldPayDate:
		d, ok := ParseDate(fmt.Sprint(h.Value))
		if !ok {
			return false
		}
		f.text[field] = d
	default:
		s, ok := h.Value.(string)
		if !ok {
			s = fmt.Sprint(h.Value)
		}
		s = strings.TrimSpace(s)
		if s == "" || h.Value == nil {
			return false
		}
		f.text[field] = s
	}
	f.conf[field] = conf
	return true
}

func hintRange(v any) (string, string, bool) {
	if m, ok := v.(map[string]any); ok {
		start, ok1 := ParseDate(fmt.Sprint(m["start"]))
		end, ok2 := ParseDate(fmt.Sprint(m["end"]))
		return start, end, ok1 && ok2
	}
	s, ok := v.(string)
	if !ok {
		return "", "", false
	}
	return ParseRange(s)
}

// deriveFromLines fills hours, rates and totals the stub only prints as
// line items.
func deriveFromLines(f fields, earnings []entity.EarningLine, deductions []entity.DeductionLine) {
	byType := map[constants.EarningType][2]constants.PayStubField{
		constants.EarningRegular:    {constants.FieldRegularHours, constants.FieldHourlyRate},
		constants.EarningOvertime:   {constants.FieldOvertimeHours, constants.FieldOvertimeRate},
		constants.EarningDoubleTime: {constants.FieldDoubleTimeHours, constants.FieldDoubleTimeRate},
	}
	for _, e := range earnings {
		pair, ok := byType[e.Type]
		if !ok {
			continue
		}
		if e.Hours != nil && !f.has(pair[0]) {
			f.num[pair[0]] = *e.Hours
			f.conf[pair[0]] = confDerived
		}
		if e.Rate != nil && !f.has(pair[1]) {
			f.num[pair[1]] = *e.Rate
			f.conf[pair[1]] = confDerived
		}
	}
	if !f.has(constants.FieldTotalDeductions) && len(deductions) > 0 {
		var sum float64
		for _, d := range deductions {
			sum += d.Amount
		}
		f.num[constants.FieldTotalDeductions] = round(sum, 2)
		f.conf[constants.FieldTotalDeductions] = confLoose
	}
	if !f.has(constants.FieldGrossPay) && len(earnings) > 0 {
		var sum float64
		for _, e := range earnings {
			sum += e.Amount
		}
		f.num[constants.FieldGrossPay] = round(sum, 2)
		f.conf[constants.FieldGrossPay] = confHeuristic
	}
}

// synthesizeEarnings builds earnings rows from hour/rate fields when the
// stub (or the hint set) has no printed rows.
func synthesizeEarnings(f fields) []entity.EarningLine {
	rows := []struct {
		desc        string
		kind        constants.EarningType
		hours, rate constants.PayStubField
	}{
		{"Regular", constants.EarningRegular, constants.FieldRegularHours, constants.FieldHourlyRate},
		{"Overtime", constants.EarningOvertime, constants.FieldOvertimeHours, constants.FieldOvertimeRate},
		{"Double Time", constants.EarningDoubleTime, constants.FieldDoubleTimeHours, constants.FieldDoubleTimeRate},
	}
	var out []entity.EarningLine
	for _, r := range rows {
		h, rate := f.num[r.hours], f.num[r.rate]
		if h <= 0 || rate <= 0 {
			continue
		}
		out = append(out, entity.EarningLine{
			Description: r.desc,
			Hours:       &h,
			Rate:        &rate,
			Amount:      round(h*rate, 2),
			Type:        r.kind,
		})
	}
	return out
}

func synthesizeDeductions(f fields) []entity.DeductionLine {
	taxes := []constants.PayStubField{
		constants.FieldFederalTax, constants.FieldStateTax, constants.FieldSocialSecurity, constants.FieldMedicare,
	}
	var out []entity.DeductionLine
	for _, t := range taxes {
		if v, ok := f.num[t]; ok && f.has(t) && v != 0 {
			out = append(out, entity.DeductionLine{Description: t.Label(), Amount: math.Abs(v), Type: constants.DeductionTax})
		}
	}
	return out
}

// RecordFromFields builds a record from a boundary field map
// ({field: {value, confidence}}). Keys may be canonical names or printed
// labels; unknown keys are returned so callers can report them.
func (n *Normalizer) RecordFromFields(in map[string]entity.FieldHint) (entity.NormalizedPayStubRecord, []string) {
	hints := make(map[constants.PayStubField]entity.FieldHint, len(in))
	var unknown []string
	for k, h := range in {
		f, ok := constants.ParseField(k)
		if !ok {
			f, ok = constants.CanonicalizeField(k)
		}
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		hints[f] = h
	}
	sort.Strings(unknown)
	return n.Normalize("", hints), unknown
}

// titleCase fixes names printed in a single case ("JANE DOE"); mixed-case
// names are kept as printed so "O'Brien" survives.
func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s != strings.ToUpper(s) && s != strings.ToLower(s) {
		return s
	}
	// a Caser is stateful, so each call gets its own
	return cases.Title(language.English).String(s)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
