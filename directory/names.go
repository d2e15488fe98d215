package directory

import (
	"strings"
	"unicode"
)

// NamesFromEmail guesses first and last names from the local part of an
// address: "jane.doe@x.io" yields ("Jane", "Doe"). Missing parts fall back
// to "User".
func NamesFromEmail(email string) (first, last string) {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first = capitalize(parts[0])
	last = "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
