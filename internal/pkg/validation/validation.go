package validation

import "regexp"

// Reference codes: letters, digits, hyphens and underscores only.
var referenceCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func IsValidReferenceCode(code string) bool {
	return code != "" && referenceCodeRe.MatchString(code)
}

// IsValidAmount accepts zero and positive amounts; deposits and plan lines
// never carry negative values.
func IsValidAmount(v float64) bool {
	return v >= 0
}

// IsValidPortfolioName: non-empty, at most 120 chars (column width).
func IsValidPortfolioName(name string) bool {
	return name != "" && len(name) <= 120
}
