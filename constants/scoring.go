package constants

import "strings"

// EmployerSize is the employer headcount band used by the compliance scorer.
type EmployerSize string

const (
	EmployerSmall      EmployerSize = "small"
	EmployerMedium     EmployerSize = "medium"
	EmployerLarge      EmployerSize = "large"
	EmployerEnterprise EmployerSize = "enterprise"
)

// ParseEmployerSize resolves a size band; empty input defaults to medium.
func ParseEmployerSize(s string) (EmployerSize, bool) {
	switch EmployerSize(strings.ToLower(strings.TrimSpace(s))) {
	case "", EmployerMedium:
		return EmployerMedium, true
	case EmployerSmall:
		return EmployerSmall, true
	case EmployerLarge:
		return EmployerLarge, true
	case EmployerEnterprise:
		return EmployerEnterprise, true
	}
	return "", false
}

// PenaltyMethod selects how aggressively penalties are estimated.
type PenaltyMethod string

const (
	MethodConservative PenaltyMethod = "conservative"
	MethodModerate     PenaltyMethod = "moderate"
	MethodMaximum      PenaltyMethod = "maximum"
)

// ParsePenaltyMethod resolves a method name; empty input defaults to moderate.
func ParsePenaltyMethod(s string) (PenaltyMethod, bool) {
	switch PenaltyMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodModerate:
		return MethodModerate, true
	case MethodConservative:
		return MethodConservative, true
	case MethodMaximum:
		return MethodMaximum, true
	}
	return "", false
}
