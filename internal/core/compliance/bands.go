package compliance

// Score bands. Every graded score in the system goes through Grade and Risk.
var (
	gradeBands = []struct {
		min   float64
		grade string
	}{
		{90, "A"},
		{80, "B"},
		{70, "C"},
		{60, "D"},
	}
	riskBands = []struct {
		min  float64
		risk string
	}{
		{80, "low"},
		{60, "medium"},
		{40, "high"},
	}
)

// Grade maps a 0..100 score to a letter grade.
func Grade(score float64) string {
	for _, b := range gradeBands {
		if score >= b.min {
			return b.grade
		}
	}
	return "F"
}

// Risk maps a 0..100 score to a risk tier.
func Risk(score float64) string {
	for _, b := range riskBands {
		if score >= b.min {
			return b.risk
		}
	}
	return "critical"
}
