package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

// SanitizeFieldMap makes model output fit FieldMapSchema:
//   - strips markdown code fences
//   - renames printed labels ("Gross Pay") to canonical keys (grossPay)
//   - accepts bare values as {value, confidence: 0.5}
//   - coerces numeric fields from printed strings; unparsable numbers
//     become value 0 with confidence 0.1
//   - drops nulls, empties and unknown keys
//
// It returns the cleaned JSON and the keys it dropped.
func SanitizeFieldMap(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(stripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	// some models wrap the map in {"fields": {...}}
	if inner, ok := m["fields"].(map[string]any); ok && len(m) == 1 {
		m = inner
	}

	out := make(map[string]any, len(m))
	var dropped []string
	for _, k := range sortedKeys(m) {
		f, ok := constants.ParseField(k)
		if !ok {
			f, ok = constants.CanonicalizeField(k)
		}
		if !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		entry, ok := coerceEntry(f, m[k])
		if !ok {
			dropped = append(dropped, k+"(empty)")
			continue
		}
		if _, exists := out[string(f)]; exists {
			dropped = append(dropped, k+"(duplicate)")
			continue
		}
		out[string(f)] = entry
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, dropped, nil
}

func coerceEntry(f constants.PayStubField, v any) (map[string]any, bool) {
	value, conf := v, 0.5
	if obj, ok := v.(map[string]any); ok {
		value = obj["value"]
		if c, ok := common.AnyToFloat(obj["confidence"]); ok {
			conf = c
		}
	}
	if conf > 1 {
		conf /= 100
	}
	conf = min(max(conf, 0), 1)

	switch t := value.(type) {
	case nil:
		return nil, false
	case string:
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, "null") || strings.EqualFold(t, "n/a") {
			return nil, false
		}
		value = t
	}

	if f.Numeric() {
		n, ok := common.AnyToFloat(value)
		if !ok {
			return map[string]any{"value": 0.0, "confidence": 0.1}, true
		}
		value = n
	} else if _, ok := value.(string); !ok {
		value = fmt.Sprint(value)
	}
	return map[string]any{"value": value, "confidence": conf}, true
}

func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// canonical keys first so they win over label duplicates
	sort.Slice(keys, func(i, j int) bool {
		_, ci := constants.ParseField(keys[i])
		_, cj := constants.ParseField(keys[j])
		if ci != cj {
			return ci
		}
		return keys[i] < keys[j]
	})
	return keys
}
