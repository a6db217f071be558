// Package phone formats customer phone numbers before they are sent on a
// voucher. Numbers typed at the till usually lack a country prefix.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the till's country, Ecuador.
const DefaultRegion = "EC"

// NormalizeE164 formats a customer phone in E.164, reading local numbers as
// Ecuadorian. Input that is not a valid number comes back trimmed so the
// remote API can report it.
func NormalizeE164(input string) string {
	return NormalizeIn(input, DefaultRegion)
}

// NormalizeIn is NormalizeE164 for a store in another region.
func NormalizeIn(input, region string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return raw
	}

	number, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return raw
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
