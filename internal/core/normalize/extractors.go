package normalize

import (
	"regexp"
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// Confidence assigned by extractor kind.
const (
	confLabelled  = 0.95
	confAlternate = 0.9
	confDerived   = 0.8
	confLoose     = 0.75
	confHeuristic = 0.6
)

// Extractor is one (pattern, extractor) pair. Extract receives the
// submatches of Pattern and returns the printed value, or false to let the
// next extractor try.
type Extractor struct {
	Name       string
	Pattern    *regexp.Regexp
	Confidence float64
	Extract    func(m []string) (string, bool)
}

// Apply runs the extractor against text.
func (e Extractor) Apply(text string) (string, bool) {
	m := e.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if e.Extract != nil {
		return e.Extract(m)
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

const (
	// words separated by single spaces; a double space ends a column
	words   = `([A-Za-z][A-Za-z.'\-]*(?: [A-Za-z][A-Za-z.'\-]*)*)`
	money   = `\$?\s*(\(?-?\d[\d,]*\.\d{2}\)?-?)`
	number  = `\$?\s*(\d[\d,]*(?:\.\d+)?)`
	sep     = `\s*[:\-#]?\s*`
	rangeTo = `\s*(?:-|–|—|to|through|thru)\s*`
)

func re(expr string) *regexp.Regexp { return regexp.MustCompile(`(?im)` + expr) }

var companySuffix = regexp.MustCompile(`(?i)\b(inc|llc|l\.l\.c|corp|corporation|company|co|ltd)\.?$`)

func notCompany(m []string) (string, bool) {
	v := strings.TrimSpace(m[1])
	if v == "" || companySuffix.MatchString(v) {
		return "", false
	}
	return v, true
}

func dateRange(m []string) (string, bool) {
	start, ok1 := ParseDate(m[1])
	end, ok2 := ParseDate(m[2])
	if !ok1 || !ok2 {
		return "", false
	}
	return start + " to " + end, true
}

// extractors lists, per field, the patterns tried in priority order:
// labelled forms first, looser heuristics last.
var extractors = map[constants.PayStubField][]Extractor{
	constants.FieldEmployeeName: {
		{Name: "employee-name-label", Pattern: re(`\bemployee\s*name` + sep + words), Confidence: confLabelled},
		{Name: "employee-label", Pattern: re(`\bemployee\s*:\s*` + words), Confidence: confAlternate, Extract: notCompany},
		{Name: "name-label", Pattern: re(`^\s*name\s*:\s*` + words), Confidence: confAlternate, Extract: notCompany},
		{Name: "pay-to-order", Pattern: re(`pay\s+to\s+the\s+order\s+of\s*:?\s*` + words), Confidence: confDerived, Extract: notCompany},
		{
			Name:       "capitalized-line",
			Pattern:    regexp.MustCompile(`(?m)^\s*([A-Z][a-z]+(?: [A-Z]\.)?(?: [A-Z][a-z'\-]+){1,2})\s*$`),
			Confidence: confHeuristic,
			Extract:    notCompany,
		},
	},
	constants.FieldEmployeeID: {
		{Name: "employee-id-label", Pattern: re(`\bemployee\s*(?:id|number|no\.?|#)` + sep + `([A-Z0-9][A-Z0-9\-]+)`), Confidence: confLabelled},
		{Name: "emp-id-label", Pattern: re(`\bemp\.?\s*(?:id|#|no\.?)` + sep + `([A-Z0-9][A-Z0-9\-]+)`), Confidence: confAlternate},
		{Name: "id-label", Pattern: re(`\bid\s*[:#]\s*([A-Z0-9][A-Z0-9\-]{2,})`), Confidence: confLoose},
	},
	constants.FieldDepartment: {
		{Name: "department-label", Pattern: re(`\bdepartment` + sep + words), Confidence: confLabelled},
		{Name: "dept-label", Pattern: re(`\bdept\.?` + sep + words), Confidence: confAlternate},
	},
	constants.FieldEmployerName: {
		{Name: "employer-label", Pattern: re(`\b(?:employer|company)(?:\s*name)?\s*:\s*([A-Za-z0-9][\w&.,'\-]*(?: [\w&.,'\-]+)*)`), Confidence: confLabelled},
		{
			Name:       "company-suffix-line",
			Pattern:    regexp.MustCompile(`(?m)^\s*([A-Z0-9][\w&'.\-]*(?: [\w&'.\-]+)*,? (?:Inc|LLC|Corp|Corporation|Company|Co|Ltd)\.?)(?:\s{2}|\s*$)`),
			Confidence: confLoose,
		},
	},
	constants.FieldPayPeriod: {
		{Name: "pay-period-label", Pattern: re(`pay\s*period(?:\s*(?:dates?|begin(?:ning)?))?` + sep + datePattern + rangeTo + datePattern), Confidence: confLabelled, Extract: dateRange},
		{Name: "period-start-end", Pattern: re(`period\s*(?:start|begin(?:ning)?)` + sep + datePattern + `[\s\S]{0,80}?period\s*end(?:ing)?` + sep + datePattern), Confidence: confAlternate, Extract: dateRange},
		{Name: "bare-range", Pattern: re(datePattern + rangeTo + datePattern), Confidence: confLoose, Extract: dateRange},
	},
	constants.FieldPayDate: {
		{Name: "pay-date-label", Pattern: re(`(?:pay|check|payment|deposit)\s*date` + sep + datePattern), Confidence: confLabelled, Extract: singleDate},
		{Name: "date-label", Pattern: re(`^\s*date\s*:\s*` + datePattern), Confidence: confLoose, Extract: singleDate},
	},
	constants.FieldGrossPay: {
		{Name: "gross-label", Pattern: re(`\bgross\s*(?:pay|earnings|wages)?` + sep + money), Confidence: confLabelled},
		{Name: "total-earnings", Pattern: re(`\btotal\s*(?:gross|earnings)` + sep + money), Confidence: confAlternate},
	},
	constants.FieldNetPay: {
		{Name: "net-pay-label", Pattern: re(`\bnet\s*(?:pay|amount|check)` + sep + money), Confidence: confLabelled},
		{Name: "take-home", Pattern: re(`\btake\s*home(?:\s*pay)?` + sep + money), Confidence: confAlternate},
		{Name: "net-bare", Pattern: re(`\bnet\b` + sep + money), Confidence: confLoose},
	},
	constants.FieldTotalDeductions: {
		{Name: "total-deductions", Pattern: re(`\btotal\s*deductions?` + sep + money), Confidence: confLabelled},
		{Name: "deductions-bare", Pattern: re(`^\s*deductions` + sep + money), Confidence: confLoose},
	},
	constants.FieldRegularHours: {
		{Name: "regular-hours", Pattern: re(`\bregular\s*hours?(?:\s*worked)?` + sep + number), Confidence: confLabelled},
		{Name: "hours-worked", Pattern: re(`\bhours\s*worked` + sep + number), Confidence: confDerived},
	},
	constants.FieldOvertimeHours: {
		{Name: "overtime-hours", Pattern: re(`\b(?:overtime|ot)\s*hours?` + sep + number), Confidence: confLabelled},
	},
	constants.FieldDoubleTimeHours: {
		{Name: "double-time-hours", Pattern: re(`\bdouble[\s\-]*time\s*hours?` + sep + number), Confidence: confLabelled},
		{Name: "dt-hours", Pattern: re(`\bdt\s*hours?` + sep + number), Confidence: confDerived},
	},
	constants.FieldHourlyRate: {
		{Name: "hourly-rate", Pattern: re(`\b(?:hourly|regular|base|pay)\s*rate` + sep + number), Confidence: confLabelled},
		{Name: "per-hour", Pattern: re(`\$\s*(\d+\.\d{2})\s*(?:/|per)\s*(?:hr|hour)\b`), Confidence: confDerived},
		{Name: "rate-bare", Pattern: re(`^\s*rate\s*:\s*` + number), Confidence: confLoose},
	},
	constants.FieldOvertimeRate: {
		{Name: "overtime-rate", Pattern: re(`\b(?:overtime|ot)\s*rate` + sep + number), Confidence: confLabelled},
	},
	constants.FieldDoubleTimeRate: {
		{Name: "double-time-rate", Pattern: re(`\bdouble[\s\-]*time\s*rate` + sep + number), Confidence: confLabelled},
	},
	constants.FieldFederalTax: {
		{Name: "federal-tax", Pattern: re(`\b(?:federal|fed)\.?\s*(?:income\s*)?(?:tax|withholding|w/h)` + sep + money), Confidence: confAlternate},
	},
	constants.FieldStateTax: {
		{Name: "state-tax", Pattern: re(`\b(?:ca\s*)?state\s*(?:income\s*)?(?:tax|withholding|w/h)` + sep + money), Confidence: confAlternate},
	},
	constants.FieldSocialSecurity: {
		{Name: "social-security", Pattern: re(`\b(?:social\s*security|oasdi|fica[\s\-]*ss)(?:\s*tax)?` + sep + money), Confidence: confAlternate},
	},
	constants.FieldMedicare: {
		{Name: "medicare", Pattern: re(`\b(?:medicare|fica[\s\-]*med)(?:\s*tax)?` + sep + money), Confidence: confAlternate},
	},
}

func singleDate(m []string) (string, bool) {
	return ParseDate(m[1])
}

// Extractors returns a copy of the ordered extractor list for f.
func Extractors(f constants.PayStubField) []Extractor {
	return append([]Extractor(nil), extractors[f]...)
}
