package compliance

import "strings"

// Eligible applies the investment eligibility rule: US retail investors are
// barred, every other tier/jurisdiction combination may invest. Wallets
// verified before tier and jurisdiction existed have empty values and
// default to eligible.
func Eligible(tier, jurisdiction string) bool {
	if tier == "" || jurisdiction == "" {
		return true
	}
	return !(strings.EqualFold(jurisdiction, "US") && strings.EqualFold(tier, "retail"))
}
