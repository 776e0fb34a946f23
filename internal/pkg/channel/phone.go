package channel

import "strings"

// DefaultCountryCode is prefixed to bare national numbers.
const DefaultCountryCode = "91"

const nationalNumberLen = 10

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// InternationalNumber normalises a phone number to country code plus national
// number, digits only. A bare 10 digit number gets countryCode prefixed.
func InternationalNumber(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	d := Digits(phone)
	if len(d) == nationalNumberLen {
		return countryCode + d
	}
	return d
}

// NationalNumber returns the last 10 digits, or "" if there are fewer.
func NationalNumber(phone string) string {
	d := Digits(phone)
	if len(d) < nationalNumberLen {
		return ""
	}
	return d[len(d)-nationalNumberLen:]
}
