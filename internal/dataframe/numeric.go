package dataframe

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumeric parses locale-formatted numbers such as "1.000,5", "1,000.5", "12.5%" or "3e-4".
// A zero dec auto-detects the decimal separator from the last ',' or '.' in the value; a zero
// thou strips whichever of ',', '.' and ' ' is not the decimal separator.
func ParseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\u00A0", " "))

	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
