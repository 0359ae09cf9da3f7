package builder

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// BuilderSuffix is appended to the target's qualified name.
const BuilderSuffix = "Builder"

// PascalCase upper-cases the first character of name and leaves the rest
// untouched: "userId" -> "UserId", "_id" -> "_id".
func PascalCase(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// SplitQualified splits a qualified name on its last '.' into package and
// simple name. A name without a separator has an empty package.
func SplitQualified(qualified string) (pkg, simple string) {
	i := strings.LastIndex(qualified, ".")
	if i < 0 {
		return "", qualified
	}
	return qualified[:i], qualified[i+1:]
}

// snakeCase turns "PersonBuilder" into "person_builder".
func snakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// isIdentifier reports whether s is a letter/underscore/dollar followed by
// letters, digits, underscores or dollars.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
