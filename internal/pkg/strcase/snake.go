// Package strcase derives snake_case keys from Go identifiers.
package strcase

import (
	"strings"
	"unicode"
)

// Words splits an identifier at case boundaries, keeping initialisms whole:
// "RefreshTokenID" -> [Refresh Token ID], "OTPCode" -> [OTP Code].
func Words(s string) []string {
	runes := []rune(s)

	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsUpper(cur) &&
			(unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])))
		if cur == '_' || cur == '.' || cur == '-' {
			if i > start {
				words = append(words, string(runes[start:i]))
			}
			start = i + 1
			continue
		}
		if boundary && i > start {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}

	return words
}

// ToLowerSnake converts an identifier to lower snake_case, e.g. "FullName" -> "full_name".
func ToLowerSnake(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}

	return strings.Join(words, "_")
}
