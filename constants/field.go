package constants

import (
	"strings"
)

// PayStubField names a canonical pay-stub field. The string value is the
// camelCase key used on the wire (ocrData, structured hints).
type PayStubField string

const (
	FieldEmployeeName    PayStubField = "employeeName"
	FieldEmployeeID      PayStubField = "employeeId"
	FieldDepartment      PayStubField = "department"
	FieldEmployerName    PayStubField = "employerName"
	FieldPayPeriod       PayStubField = "payPeriod"
	FieldPayDate         PayStubField = "payDate"
	FieldGrossPay        PayStubField = "grossPay"
	FieldNetPay          PayStubField = "netPay"
	FieldTotalDeductions PayStubField = "totalDeductions"
	FieldRegularHours    PayStubField = "regularHours"
	FieldOvertimeHours   PayStubField = "overtimeHours"
	FieldDoubleTimeHours PayStubField = "doubleTimeHours"
	FieldHourlyRate      PayStubField = "hourlyRate"
	FieldOvertimeRate    PayStubField = "overtimeRate"
	FieldDoubleTimeRate  PayStubField = "doubleTimeRate"
	FieldFederalTax      PayStubField = "federalTax"
	FieldStateTax        PayStubField = "stateTax"
	FieldSocialSecurity  PayStubField = "socialSecurity"
	FieldMedicare        PayStubField = "medicare"
)

var allFields = []PayStubField{
	FieldEmployeeName,
	FieldEmployeeID,
	FieldDepartment,
	FieldEmployerName,
	FieldPayPeriod,
	FieldPayDate,
	FieldGrossPay,
	FieldNetPay,
	FieldTotalDeductions,
	FieldRegularHours,
	FieldOvertimeHours,
	FieldDoubleTimeHours,
	FieldHourlyRate,
	FieldOvertimeRate,
	FieldDoubleTimeRate,
	FieldFederalTax,
	FieldStateTax,
	FieldSocialSecurity,
	FieldMedicare,
}

// RequiredFields are the items an itemized wage statement must show.
var RequiredFields = []PayStubField{
	FieldEmployeeName,
	FieldEmployerName,
	FieldPayPeriod,
	FieldGrossPay,
	FieldNetPay,
	FieldRegularHours,
	FieldHourlyRate,
}

var fieldLabels = map[PayStubField]string{
	FieldEmployeeName:    "Employee name",
	FieldEmployeeID:      "Employee ID",
	FieldDepartment:      "Department",
	FieldEmployerName:    "Employer name",
	FieldPayPeriod:       "Pay period dates",
	FieldPayDate:         "Pay date",
	FieldGrossPay:        "Gross wages earned",
	FieldNetPay:          "Net wages earned",
	FieldTotalDeductions: "Total deductions",
	FieldRegularHours:    "Hours worked",
	FieldOvertimeHours:   "Overtime hours",
	FieldDoubleTimeHours: "Double time hours",
	FieldHourlyRate:      "Hourly rate of pay",
	FieldOvertimeRate:    "Overtime rate",
	FieldDoubleTimeRate:  "Double time rate",
	FieldFederalTax:      "Federal tax",
	FieldStateTax:        "State tax",
	FieldSocialSecurity:  "Social security",
	FieldMedicare:        "Medicare",
}

// AllFields returns every canonical field.
func AllFields() []PayStubField {
	out := make([]PayStubField, len(allFields))
	copy(out, allFields)
	return out
}

// Label returns the human-facing description of the field.
func (f PayStubField) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Numeric reports whether the field holds an amount, an hour count or a rate.
func (f PayStubField) Numeric() bool {
	switch f {
	case FieldEmployeeName, FieldEmployeeID, FieldDepartment, FieldEmployerName, FieldPayPeriod, FieldPayDate:
		return false
	}
	return true
}

// Valid reports whether f is a known field.
func (f PayStubField) Valid() bool {
	_, ok := fieldLabels[f]
	return ok
}

// ParseField resolves a wire key (e.g. "grossPay") to its field.
func ParseField(key string) (PayStubField, bool) {
	key = strings.TrimSpace(key)
	for _, f := range allFields {
		if strings.EqualFold(key, string(f)) {
			return f, true
		}
	}
	return "", false
}

// labelSynonyms maps printed pay-stub labels onto canonical fields. Order
// matters: longer, more specific labels are matched before their substrings.
var labelSynonyms = []struct {
	label string
	field PayStubField
}{
	{"employee name", FieldEmployeeName},
	{"employee id", FieldEmployeeID},
	{"employee number", FieldEmployeeID},
	{"emp id", FieldEmployeeID},
	{"department", FieldDepartment},
	{"employer name", FieldEmployerName},
	{"company name", FieldEmployerName},
	{"employer", FieldEmployerName},
	{"pay period", FieldPayPeriod},
	{"period", FieldPayPeriod},
	{"pay date", FieldPayDate},
	{"check date", FieldPayDate},
	{"gross pay", FieldGrossPay},
	{"gross earnings", FieldGrossPay},
	{"gross wages", FieldGrossPay},
	{"total gross", FieldGrossPay},
	{"net pay", FieldNetPay},
	{"take home", FieldNetPay},
	{"net amount", FieldNetPay},
	{"total deductions", FieldTotalDeductions},
	{"regular hours", FieldRegularHours},
	{"hours worked", FieldRegularHours},
	{"overtime hours", FieldOvertimeHours},
	{"ot hours", FieldOvertimeHours},
	{"double time hours", FieldDoubleTimeHours},
	{"doubletime hours", FieldDoubleTimeHours},
	{"double time rate", FieldDoubleTimeRate},
	{"overtime rate", FieldOvertimeRate},
	{"ot rate", FieldOvertimeRate},
	{"hourly rate", FieldHourlyRate},
	{"pay rate", FieldHourlyRate},
	{"federal tax", FieldFederalTax},
	{"federal income tax", FieldFederalTax},
	{"fed withholding", FieldFederalTax},
	{"state tax", FieldStateTax},
	{"ca state tax", FieldStateTax},
	{"state income tax", FieldStateTax},
	{"social security", FieldSocialSecurity},
	{"oasdi", FieldSocialSecurity},
	{"medicare", FieldMedicare},
}

// CanonicalizeField maps a free-text label as printed on a pay stub (or
// returned by a key/value OCR service) onto a canonical field.
func CanonicalizeField(label string) (PayStubField, bool) {
	if label == "" {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.TrimRight(normalized, ": ")
	normalized = strings.Join(strings.Fields(normalized), " ")

	if f, ok := ParseField(normalized); ok {
		return f, true
	}
	for _, s := range labelSynonyms {
		if normalized == s.label {
			return s.field, true
		}
	}
	for _, s := range labelSynonyms {
		if strings.Contains(normalized, s.label) {
			return s.field, true
		}
	}
	return "", false
}
