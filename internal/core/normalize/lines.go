package normalize

import (
	"regexp"
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// reLineItem matches "description [hours rate] amount [ytd]".
var reLineItem = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9 .&'/()#\-]*?)\s+` +
	`(?:(\d{1,3}(?:\.\d{1,2})?)\s+(?:@\s*)?\$?(\d{1,4}\.\d{2,4})\s+)?` +
	`\$?(\(?-?[\d,]+\.\d{2}\)?-?)(?:\s+\$?[\d,]+\.\d{2})?$`)

var reHasLetter = regexp.MustCompile(`[A-Za-z]`)

// summaryWords mark header, total and labelled-field lines that are not
// line items.
var summaryWords = []string{
	"gross", "net", "total", "ytd", "period", "date", "hours", "rate",
	"employee", "employer", "department", "check", "balance", "current",
}

// deductionKeywords classify a line as a deduction. The set is fixed.
var deductionKeywords = []string{"tax", "insurance", "401k", "medicare", "social security", "fica"}

// earningKeywords sub-type earnings lines; order matters ("double time"
// before "overtime" before "time").
var earningKeywords = []struct {
	kind     constants.EarningType
	keywords []string
}{
	{constants.EarningDoubleTime, []string{"double"}},
	{constants.EarningOvertime, []string{"overtime", "ot"}},
	{constants.EarningRegular, []string{"regular", "reg", "hourly", "salary", "base"}},
	{constants.EarningPremium, []string{"premium", "differential", "diff", "meal", "rest"}},
	{constants.EarningBonus, []string{"bonus", "commission", "incentive"}},
	{constants.EarningLeave, []string{"vacation", "sick", "pto", "holiday", "leave"}},
}

// lineItem is a parsed row before classification.
type lineItem struct {
	desc   string
	hours  *float64
	rate   *float64
	amount float64
}

func parseLine(line string) (lineItem, bool) {
	m := reLineItem.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return lineItem{}, false
	}
	desc := strings.Join(strings.Fields(m[1]), " ")
	if !reHasLetter.MatchString(desc) || isSummary(desc) {
		return lineItem{}, false
	}
	amount, ok := common.ParseAmount(m[4])
	if !ok {
		return lineItem{}, false
	}
	item := lineItem{desc: desc, amount: amount}
	if m[2] != "" && m[3] != "" {
		h, ok1 := common.ParseAmount(m[2])
		r, ok2 := common.ParseAmount(m[3])
		if ok1 && ok2 {
			item.hours, item.rate = &h, &r
		}
	}
	return item, true
}

func isSummary(desc string) bool {
	for _, w := range tokens(desc) {
		for _, s := range summaryWords {
			if w == s {
				return true
			}
		}
	}
	return false
}

// tokens lower-cases desc and splits it into words; "401(k)" becomes
// "401k".
func tokens(desc string) []string {
	d := strings.ToLower(desc)
	d = strings.NewReplacer("(", "", ")", "", "/", " ", "-", " ", ".", " ").Replace(d)
	return strings.Fields(d)
}

func containsKeyword(desc, kw string) bool {
	ws := tokens(desc)
	kws := strings.Fields(kw)
	for i := 0; i+len(kws) <= len(ws); i++ {
		match := true
		for j, k := range kws {
			if ws[i+j] != k {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// IsDeduction reports whether a line description names a deduction.
func IsDeduction(desc string) bool {
	for _, kw := range deductionKeywords {
		if containsKeyword(desc, kw) {
			return true
		}
	}
	return false
}

// DeductionTypeOf sub-types a deduction description.
func DeductionTypeOf(desc string) constants.DeductionType {
	switch {
	case containsKeyword(desc, "tax"), containsKeyword(desc, "medicare"),
		containsKeyword(desc, "social security"), containsKeyword(desc, "fica"):
		return constants.DeductionTax
	case containsKeyword(desc, "insurance"):
		return constants.DeductionInsurance
	case containsKeyword(desc, "401k"):
		return constants.DeductionRetirement
	}
	return constants.DeductionOther
}

// EarningTypeOf sub-types an earnings description by keyword.
func EarningTypeOf(desc string) constants.EarningType {
	for _, ek := range earningKeywords {
		for _, kw := range ek.keywords {
			if containsKeyword(desc, kw) {
				return ek.kind
			}
		}
	}
	return constants.EarningOther
}

// ExtractLineItems scans text line by line for earnings and deductions.
func ExtractLineItems(text string) ([]entity.EarningLine, []entity.DeductionLine) {
	var earnings []entity.EarningLine
	var deductions []entity.DeductionLine
	for _, line := range strings.Split(text, "\n") {
		item, ok := parseLine(line)
		if !ok {
			continue
		}
		if IsDeduction(item.desc) {
			amt := item.amount
			if amt < 0 {
				amt = -amt
			}
			deductions = append(deductions, entity.DeductionLine{
				Description: item.desc,
				Amount:      amt,
				Type:        DeductionTypeOf(item.desc),
			})
			continue
		}
		earnings = append(earnings, entity.EarningLine{
			Description: item.desc,
			Hours:       item.hours,
			Rate:        item.rate,
			Amount:      item.amount,
			Type:        EarningTypeOf(item.desc),
		})
	}
	return earnings, deductions
}
