package advisory

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// Accessors for schema-variable provider payloads. Upstream shapes differ per
// location and provider, so every lookup tolerates absence and wrong types.

func payloadMap(p RawPayload, key string) RawPayload {
	if p == nil {
		return nil
	}
	switch v := p[key].(type) {
	case map[string]any:
		return RawPayload(v)
	case RawPayload:
		return v
	}
	return nil
}

func payloadSlice(p RawPayload, key string) []any {
	if p == nil {
		return nil
	}
	if v, ok := p[key].([]any); ok {
		return v
	}
	return nil
}

func payloadString(p RawPayload, key string) string {
	if p == nil {
		return ""
	}
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// payloadFloat reads a numeric field that may arrive as a JSON number, a
// json.Number, or a string with trailing units ("2%", "6.5").
func payloadFloat(p RawPayload, key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return leadingNumber(v)
	}
	return 0, false
}

var numberPattern = regexp.MustCompile(`-?[\d.]+`)

// leadingNumber extracts the first numeric token from a string such as
// "5.12 inches" or "27.39".
func leadingNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var profitPattern = regexp.MustCompile(`\$?([\d,]+)\s*-\s*\$?([\d,]+)`)

// profitabilityMidpoint parses a range like "$2,000 - $5,000/acre" and returns
// the rounded midpoint. Unparsable input yields 0.
func profitabilityMidpoint(s string) int {
	m := profitPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	low, err1 := strconv.Atoi(stripCommas(m[1]))
	high, err2 := strconv.Atoi(stripCommas(m[2]))
	if err1 != nil || err2 != nil {
		return 0
	}
	return (low + high + 1) / 2
}

func stripCommas(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// topCrops returns the top_crops entries from a crop payload as maps,
// skipping entries of unexpected shape.
func topCrops(cropData RawPayload) []RawPayload {
	raw := payloadSlice(cropData, "top_crops")
	crops := make([]RawPayload, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			crops = append(crops, RawPayload(m))
		}
	}
	return crops
}
