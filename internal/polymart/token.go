package polymart

import "strings"

// ValidToken reports whether raw looks like a Polymart verification token:
// three or four dash-separated groups, the first three exactly three
// alphanumeric characters, the optional fourth one to three characters.
func ValidToken(raw string) bool {
	token := strings.TrimSpace(raw)
	groups := strings.Split(token, "-")
	if len(groups) != 3 && len(groups) != 4 {
		return false
	}
	for i, group := range groups {
		if i < 3 && len(group) != 3 {
			return false
		}
		if i == 3 && (len(group) < 1 || len(group) > 3) {
			return false
		}
		for _, r := range group {
			if !isAlphanumeric(r) {
				return false
			}
		}
	}
	return true
}

// CleanToken strips whitespace and dashes, yielding the 9 to 12 character
// form sent to the API. Returns "" when the token is not valid.
func CleanToken(raw string) string {
	if !ValidToken(raw) {
		return ""
	}
	return strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
