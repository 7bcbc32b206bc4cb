package security

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxTextLength bounds free-text fields such as addresses.
const MaxTextLength = 512

var (
	// XSS patterns
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`), // onclick, onload, etc.
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)<embed[^>]*>`),
		regexp.MustCompile(`(?i)<object[^>]*>`),
	}

	htmlTagsRegex   = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// SanitizeString removes potentially dangerous characters from input
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return removeControlCharacters(input)
}

// StripHTMLTags removes all HTML tags from input
func StripHTMLTags(input string) string {
	return htmlTagsRegex.ReplaceAllString(input, "")
}

// StripXSS removes script-like payloads without HTML-encoding the rest, so
// addresses such as "Calle 5 & 6" reach the geocoder unchanged.
func StripXSS(input string) string {
	for _, pattern := range xssPatterns {
		input = pattern.ReplaceAllString(input, "")
	}
	return StripHTMLTags(input)
}

// ContainsXSS checks if input contains potential XSS patterns
func ContainsXSS(input string) bool {
	for _, pattern := range xssPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// NormalizeWhitespace collapses runs of whitespace and trims the result
func NormalizeWhitespace(input string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(input, " "))
}

// TruncateString truncates a string to at most maxLength runes
func TruncateString(input string, maxLength int) string {
	if maxLength <= 0 {
		return input
	}
	runes := []rune(input)
	if len(runes) <= maxLength {
		return input
	}
	return string(runes[:maxLength])
}

// SanitizeText is the sanitizer applied to free-text request values.
func SanitizeText(input string, maxLength int) string {
	input = SanitizeString(input)
	input = StripXSS(input)
	input = NormalizeWhitespace(input)
	return TruncateString(input, maxLength)
}

func removeControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
