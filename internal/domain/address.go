package domain

import "strings"

// simplifiedTokens is how many leading address tokens the fallback keeps.
const simplifiedTokens = 3

// SimplifyAddress returns the first three whitespace-separated tokens of
// address. ok is false when the address has three tokens or fewer, in which
// case there is nothing to simplify and no fallback should be attempted.
//
// Tokenizing on whitespace is locale-naive; scripts without spaces never
// simplify.
func SimplifyAddress(address string) (simplified string, ok bool) {
	fields := strings.Fields(address)
	if len(fields) <= simplifiedTokens {
		return "", false
	}
	return strings.Join(fields[:simplifiedTokens], " "), true
}

// DistrictKeyword picks the token used to match catalog addresses against a
// reverse-geocoded area: the second token (city or district) when present,
// otherwise the first.
func DistrictKeyword(address string) string {
	fields := strings.Fields(address)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return fields[1]
	}
}
