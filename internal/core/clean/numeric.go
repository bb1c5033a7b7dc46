package clean

import (
	"math"
	"regexp"
	"strconv"
)

// Matches the first contiguous integer or decimal token in a field,
// e.g. "1,234 deaths (approx.)" -> "1" ... "deaths: 12.5k" -> "12.5".
var numericToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Numeric extracts the first numeric token from a raw field value and
// returns it as a float. The second return is false when the field holds
// no numeric token at all, so aggregates can skip the value instead of
// counting a zero.
func Numeric(s string) (float64, bool) {
	m := numericToken.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Rewrite returns the canonical decimal spelling of the field's numeric
// value, or the empty string when the field is missing a value.
func Rewrite(s string) string {
	v, ok := Numeric(s)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
