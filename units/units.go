package units

import (
	"fmt"
	"strconv"
	"strings"
)

var multipliers = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// Normalize converts a display value such as "$1.2M", "5.3%" or
// "12,345" to a plain number. A leading "-" is the site's
// no-data placeholder and yields 0.
func Normalize(s string) (float64, error) {
	v := strings.TrimSpace(s)
	if v == "" || v[0] == '-' {
		return 0, nil
	}

	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")

	if v == "" {
		return 0, fmt.Errorf("normalize %q: no digits", s)
	}

	percent := false
	mult := 1.0
	last := v[len(v)-1]
	if last == '%' {
		percent = true
		v = v[:len(v)-1]
	} else if m, ok := multipliers[last]; ok {
		mult = m
		v = v[:len(v)-1]
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("normalize %q: %v", s, err)
	}
	if percent {
		return f / 100, nil
	}
	return f * mult, nil
}

func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeString is Normalize followed by Format.
func NormalizeString(s string) (string, error) {
	v, err := Normalize(s)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}
