package domain

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is the dialing prefix assumed for locally formatted
// numbers ("0..." style) when no code is configured.
const DefaultCountryCode = "84"

var nationalNumberPattern = regexp.MustCompile(`^[1-9][0-9]{7,10}$`)

// NormalizePhone canonicalizes a phone number so that every representation
// of the same number collides on the (campaign, phone) uniqueness key:
// formatting characters are stripped, a leading "0" is replaced by the
// country code, and a "+" international prefix is dropped. "0901234567"
// and "84901234567" both normalize to "84901234567".
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var digits strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			// dropped; the country code is re-derived below
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// formatting noise
		default:
			return "", ErrInvalidPhone
		}
	}

	number := digits.String()
	var national string
	switch {
	case strings.HasPrefix(number, "0"):
		national = number[1:]
	case strings.HasPrefix(number, countryCode):
		national = number[len(countryCode):]
	default:
		return "", ErrInvalidPhone
	}

	if !nationalNumberPattern.MatchString(national) {
		return "", ErrInvalidPhone
	}
	return countryCode + national, nil
}
