package utils

import "strings"

// NormalizePhone keeps only the digits of a phone number. Stored phones,
// house member lists and credential identifiers all use this form.
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// IsValidPhone accepts 10 to 15 digits with no leading zero.
func IsValidPhone(phone string) bool {
	d := NormalizePhone(phone)
	return len(d) >= 10 && len(d) <= 15 && d[0] != '0'
}

// CredentialIdentifier derives the sign-in identifier for a phone.
func CredentialIdentifier(phone, domain string) string {
	return NormalizePhone(phone) + "@" + domain
}

// NormalizePhones normalizes and deduplicates a list, dropping empties.
func NormalizePhones(phones []string) []string {
	seen := make(map[string]bool, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		n := NormalizePhone(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
