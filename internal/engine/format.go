package engine

import (
	"strconv"
	"strings"
)

// significantDigits is the display precision applied to every value that is
// rendered as text.
const significantDigits = 14

// FormatNumber renders v with at most 14 significant digits, without
// trailing zeros and never in exponent notation. Negative zero renders as
// "0". Non-finite values must be filtered out by the caller.
func FormatNumber(v float64) string {
	if v == 0 {
		return "0"
	}

	// "d.ddddddddddddde±XX" gives the rounded significand and the decimal
	// exponent; the digits are then placed in fixed notation.
	s := strconv.FormatFloat(v, 'e', significantDigits-1, 64)

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	mantissa, expPart, _ := strings.Cut(s, "e")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return "0"
	}

	digits := strings.TrimRight(strings.Replace(mantissa, ".", "", 1), "0")
	if digits == "" {
		return "0"
	}

	// n is the number of digits before the decimal point.
	n := exp + 1

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}

	switch {
	case n <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -n))
		b.WriteString(digits)
	case n >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", n-len(digits)))
	default:
		b.WriteString(digits[:n])
		b.WriteByte('.')
		b.WriteString(digits[n:])
	}

	return b.String()
}

// parseEntry reads the entry text back as a number. Anything that does not
// parse reads as zero.
func parseEntry(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// normalize parses s and re-renders it, falling back to "0".
func normalize(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "0"
	}
	return FormatNumber(v)
}
