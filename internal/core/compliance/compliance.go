package compliance

import (
	"math"
	"sort"
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// DefaultHistoricalScore is the starting point when the caller has no
// history for the employer.
const DefaultHistoricalScore = 75.0

const (
	qualityWeight = 0.3
	scoreWeight   = 1 - qualityWeight
)

var severityDeduction = map[constants.Severity]float64{
	constants.SeverityHigh:   20,
	constants.SeverityMedium: 10,
	constants.SeverityLow:    5,
}

var sizeAdjustment = map[constants.EmployerSize]float64{
	constants.EmployerSmall:      -5,
	constants.EmployerMedium:     0,
	constants.EmployerLarge:      5,
	constants.EmployerEnterprise: 10,
}

var industryAdjustment = map[string]float64{
	"retail":        -3,
	"restaurant":    -5,
	"food_service":  -5,
	"agriculture":   -5,
	"construction":  -2,
	"healthcare":    0,
	"manufacturing": -1,
	"technology":    3,
	"finance":       2,
}

// Industries returns the industries with a known adjustment.
func Industries() []string {
	out := make([]string, 0, len(industryAdjustment))
	for k := range industryAdjustment {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func industryKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }), "_")
}

// Options carries the optional scoring inputs. A nil HistoricalScore means
// DefaultHistoricalScore; an empty EmployerSize means medium.
type Options struct {
	DocumentQuality *entity.Quality
	EmployerSize    constants.EmployerSize
	Industry        string
	HistoricalScore *float64
}

// Score grades a set of violations.
func Score(violations []entity.Violation, opts Options) (entity.ComplianceScore, error) {
	size, ok := constants.ParseEmployerSize(string(opts.EmployerSize))
	historical := DefaultHistoricalScore
	if opts.HistoricalScore != nil {
		historical = *opts.HistoricalScore
	}
	v := common.NewValidator().Field("historicalScore", historical, common.Between(0, 100))
	if !ok {
		v.Field("employerSize", string(opts.EmployerSize), common.Invalid("must be small, medium, large or enterprise"))
	}
	if err := v.Err(); err != nil {
		return entity.ComplianceScore{}, err
	}

	score := historical
	for _, vi := range violations {
		score -= severityDeduction[vi.Severity]
	}
	if q := opts.DocumentQuality; q != nil {
		score = scoreWeight*score + qualityWeight*QualityAverage(*q)
	}
	industry := industryKey(opts.Industry)
	score += sizeAdjustment[size] + industryAdjustment[industry]
	score = round2(clamp(score))

	avg := IndustryAverage(size, industry)
	return entity.ComplianceScore{
		OverallScore:   score,
		Grade:          Grade(score),
		RiskLevel:      Risk(score),
		CategoryScores: CategoryScores(violations),
		Benchmark: entity.Benchmark{
			EmployerSize:    size,
			Industry:        industry,
			IndustryAverage: avg,
			Comparison:      compare(score, avg),
		},
	}, nil
}

// QualityAverage is the mean of text completeness, data completeness and
// record confidence, all on a 0..100 scale.
func QualityAverage(q entity.Quality) float64 {
	return (q.TextCompleteness + q.DataCompleteness + q.Confidence*100) / 3
}

// CategoryScores starts every category at 100 and deducts per violation.
func CategoryScores(violations []entity.Violation) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range constants.AllViolationCategories() {
		out[string(c)] = 100
	}
	for _, vi := range violations {
		c := string(vi.Type.Category())
		out[c] = clamp(out[c] - severityDeduction[vi.Severity])
	}
	return out
}

// IndustryAverage is the benchmark a score is compared with: the default
// historical score moved by the same size and industry adjustments.
func IndustryAverage(size constants.EmployerSize, industry string) float64 {
	return clamp(DefaultHistoricalScore + sizeAdjustment[size] + industryAdjustment[industryKey(industry)])
}

func compare(score, avg float64) string {
	switch {
	case score >= avg+5:
		return "above_average"
	case score <= avg-5:
		return "below_average"
	}
	return "average"
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
