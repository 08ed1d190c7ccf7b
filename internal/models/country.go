package models

import "strings"

// HomeCountry is assigned to items that carry no country code
const HomeCountry = "KR"

// NormalizeCountry trims, upper-cases and truncates a country code to two characters.
// Blank input yields HomeCountry.
func NormalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return HomeCountry
	}
	runes := []rune(code)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
