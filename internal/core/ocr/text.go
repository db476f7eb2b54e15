package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)
	reMDTable    = regexp.MustCompile(`(?m)^\|(.*)\|$`)
	reMDEmphasis = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// CleanText folds unicode compatibility forms, collapses noisy whitespace
// and removes ruler lines. Line breaks are kept because line-item
// extraction is line oriented; runs of spaces inside a line collapse to two
// so column gaps stay distinguishable from word gaps.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, "  ")
	s = reBoxNoise.ReplaceAllString(s, "")
	// markdown tables and bold from LLM/markdown OCR output
	s = reMDTable.ReplaceAllStringFunc(s, func(row string) string {
		cells := strings.Split(strings.Trim(row, "|"), "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		return strings.Join(cells, "  ")
	})
	s = reMDEmphasis.ReplaceAllString(s, "$1")
	s = reMultiSpace.ReplaceAllString(s, "  ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
