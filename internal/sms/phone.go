// Package sms implements outbound SMS delivery through ranked gateway
// providers with prioritized failover.
package sms

import (
	"log/slog"
	"regexp"
	"strings"
)

// Kenyan numbering constants. All per-user state is keyed by the MSISDN in
// international format without the leading plus.
const countryCode = "254"

// Valid mobile numbers: country code, a 7 or 1 operator prefix, then eight
// subscriber digits.
var kenyanMobile = regexp.MustCompile(`^254[71]\d{8}$`)

var msisdnCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// NormalizeMSISDN converts a raw phone number into international format
// without the plus sign: whitespace, dashes, parentheses and a leading "+"
// are stripped; a national trunk "0" is replaced with the country code; a
// bare subscriber number gets the country code prepended.
//
// The bool result reports whether the normalized string matches the Kenyan
// mobile pattern. Validation is advisory: callers log a warning and still
// attempt delivery with the best-effort string.
func NormalizeMSISDN(raw string) (string, bool) {
	cleaned := msisdnCleaner.Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = countryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, "7"), strings.HasPrefix(cleaned, "1"):
		cleaned = countryCode + cleaned
	case !strings.HasPrefix(cleaned, countryCode):
		cleaned = countryCode + cleaned
	}

	return cleaned, kenyanMobile.MatchString(cleaned)
}

// normalizeForDelivery normalizes and logs the advisory warning on
// validation failure.
func normalizeForDelivery(raw string) string {
	msisdn, ok := NormalizeMSISDN(raw)
	if !ok {
		slog.Warn("Phone number might be invalid", "raw", raw, "normalized", msisdn)
	}
	return msisdn
}

// InternationalFormat returns the normalized number with a leading plus,
// the form the bulk gateway expects.
func InternationalFormat(raw string) string {
	return "+" + normalizeForDelivery(raw)
}
