package normalize

import (
	"regexp"
	"strings"
	"time"
)

// datePattern matches every printed date form ParseDate understands.
const datePattern = `(\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}-\d{1,2}-\d{2,4}|\d{4}-\d{2}-\d{2}|` +
	`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`

var reDate = regexp.MustCompile(`(?i)` + datePattern)

// layouts are tried in order; four-digit years precede two-digit ones so
// "01/15/2024" never parses as year 2020.
var layouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"1-2-06",
	"Jan 2 2006",
	"January 2 2006",
}

// ParseDate converts a printed date to YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.NewReplacer(",", " ", ".", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasPrefix(strings.ToLower(s), "sept ") {
		s = "Sep " + s[5:]
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// ParseRange reads "start to end" style text (or any text holding two
// dates) and returns both dates normalized.
func ParseRange(s string) (start, end string, ok bool) {
	found := reDate.FindAllString(s, 2)
	if len(found) < 2 {
		return "", "", false
	}
	start, ok1 := ParseDate(found[0])
	end, ok2 := ParseDate(found[1])
	if !ok1 || !ok2 {
		return "", "", false
	}
	return start, end, true
}
