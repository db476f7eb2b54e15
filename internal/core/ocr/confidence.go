package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reAmount = regexp.MustCompile(`\$?\s?\d{1,3}(,\d{3})*\.\d{2}\b`)
	reHours  = regexp.MustCompile(`(?i)\bhours?\b|\bhrs\b`)
	reLabels = regexp.MustCompile(`(?i)\b(gross|net pay|deduction|employee|pay period|earnings|ytd)\b`)
)

// heuristicCap bounds scores for engines that report no confidence of their own.
const heuristicCap = 85.0

// HeuristicConfidence estimates 0..100 confidence from how much the text
// looks like a pay stub: dates, currency amounts, hours, common labels and
// enough content, minus a penalty for garbled output.
func HeuristicConfidence(txt string) float64 {
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return 0
	}
	score := 20.0
	if reDate.MatchString(txt) {
		score += 15
	}
	if n := len(reAmount.FindAllString(txt, 4)); n > 0 {
		score += 5 * float64(n)
	}
	if reHours.MatchString(txt) {
		score += 10
	}
	if n := len(reLabels.FindAllString(txt, 3)); n > 0 {
		score += 5 * float64(n)
	}
	if len(txt) > 200 {
		score += 10
	}
	if isGarbled(txt) {
		score -= 30
	}
	return clamp(score, 0, heuristicCap)
}

// isGarbled flags text where most short tokens are stray single characters
// or where decoding produced replacement characters.
func isGarbled(text string) bool {
	var total, bad int
	for _, r := range text {
		total++
		if r == '\uFFFD' {
			bad++
		}
	}
	if total > 0 && float64(bad)/float64(total) > 0.05 {
		return true
	}

	words := strings.Fields(text)
	if len(words) < 20 {
		return false
	}
	sample := min(50, len(words))
	single := 0
	for _, w := range words[:sample] {
		if len(w) == 1 && !strings.ContainsAny(w, ".-:$xX") {
			single++
		}
	}
	return float64(single)/float64(sample) > 0.4
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
