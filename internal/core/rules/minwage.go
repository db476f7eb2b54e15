package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// StateMinimumWage is the California statewide rate.
const StateMinimumWage = 16.00

// MinimumWageTable maps a normalized city key (upper case, words joined by
// underscores) to its local minimum wage.
type MinimumWageTable map[string]float64

// DefaultMinimumWages are the local ordinances the engine knows about.
func DefaultMinimumWages() MinimumWageTable {
	return MinimumWageTable{
		"LOS_ANGELES":   16.78,
		"SAN_FRANCISCO": 18.07,
		"SAN_DIEGO":     16.30,
		"SANTA_CLARA":   17.20,
		"OAKLAND":       16.94,
	}
}

func cityKey(city string) string {
	city = strings.ToUpper(strings.TrimSpace(city))
	city = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(city)
	return strings.Join(strings.Fields(city), "_")
}

// Lookup returns the rate for city, falling back to the state rate.
func (t MinimumWageTable) Lookup(city string) float64 {
	if rate, ok := t[cityKey(city)]; ok {
		return rate
	}
	return StateMinimumWage
}

// Display returns the table keyed by human-readable city names, with the
// state rate under "State".
func (t MinimumWageTable) Display() map[string]string {
	out := map[string]string{"State": fmt.Sprintf("%.2f", StateMinimumWage)}
	for k, v := range t {
		out[displayCity(k)] = fmt.Sprintf("%.2f", v)
	}
	return out
}

// Cities returns the table's city keys sorted.
func (t MinimumWageTable) Cities() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func displayCity(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// UnsupportedJurisdiction reports a location outside California.
func UnsupportedJurisdiction(state string) error {
	return common.NewAppError(common.CodeUnsupportedJurisdiction,
		fmt.Sprintf("state %q is not supported; only California rules are implemented", state),
		common.ErrUnsupportedJurisdiction)
}

// ApplicableMinimumWage returns the minimum wage for loc using the default
// table. Only California is supported.
func ApplicableMinimumWage(loc entity.LocationInfo) (float64, error) {
	return New().ApplicableMinimumWage(loc)
}
