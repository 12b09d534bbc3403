package utils

import "strings"

// Vendor-supplied identifier fields frequently hold several values in one
// column ("ACC-1, ACC-2; ACC-3"). ParseMultiValueInput splits such input on
// commas, semicolons and newlines, honoring double quotes so a quoted value
// may contain delimiters, and dedupes case-insensitively keeping the first
// casing seen. Placeholder tokens that vendors use for "no value" are dropped.
func ParseMultiValueInput(input string) []string {
	tokens := splitQuoted(input)

	seen := make(map[string]struct{}, len(tokens))
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		token = stripSurroundingQuotes(token)
		if token == "" || isPlaceholderValue(token) {
			continue
		}
		key := strings.ToLower(token)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, token)
	}
	return result
}

// CanonicalizeMultiValue renders a parsed value list back to its stored form.
func CanonicalizeMultiValue(input string) string {
	return strings.Join(ParseMultiValueInput(input), ", ")
}

// IsEmptyMultiValue reports whether the field holds no real value once
// placeholders and whitespace are discarded.
func IsEmptyMultiValue(input string) bool {
	return len(ParseMultiValueInput(input)) == 0
}

func splitQuoted(input string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case !inQuotes && (r == ',' || r == ';' || r == '\n'):
			tokens = append(tokens, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	tokens = append(tokens, current.String())
	return tokens
}

func stripSurroundingQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

func isPlaceholderValue(s string) bool {
	switch strings.ToLower(s) {
	case "-", "--", "n/a", "null", "none":
		return true
	}
	return false
}
