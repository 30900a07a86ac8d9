package issuance

import (
	"fmt"
	"math/rand"
)

// isinPrefix is the country code plus the mock NSIN issuer prefix. The
// remaining five digits are random and the final digit is the ISO 6166
// check digit over the first eleven characters.
const isinPrefix = "USMOCK"

// GenerateISIN produces a 12-character mock ISIN such as "USMOCK482715".
func GenerateISIN() string {
	body := fmt.Sprintf("%s%05d", isinPrefix, rand.Intn(100_000))
	return body + string(rune('0'+checkDigit(body)))
}

// ValidISIN reports whether s is a well-formed mock ISIN with a correct
// check digit.
func ValidISIN(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s[6:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	if s[:6] != isinPrefix {
		return false
	}
	return int(s[11]-'0') == checkDigit(s[:11])
}

// checkDigit implements the ISO 6166 Luhn variant: letters expand to their
// two-digit base-36 values, then doubling alternates from the rightmost
// digit.
func checkDigit(body string) int {
	var digits []int
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			digits = append(digits, v/10, v%10)
		}
	}

	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
