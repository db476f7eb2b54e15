package common

import (
	"strconv"
	"strings"
)

// ParseAmount reads a printed money, hour or rate value: "$1,234.56",
// "(12.00)", "40.00 hrs", "12.50-". Currency symbols, thousands separators
// and trailing units are ignored.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(s)
	s = strings.TrimRightFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// AnyToFloat converts a decoded JSON value (number or printed string) to a
// float.
func AnyToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		return ParseAmount(t)
	}
	return 0, false
}
