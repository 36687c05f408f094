package extract

import (
	"regexp"
	"strings"
)

var (
	phonePatterns = []*regexp.Regexp{
		// French numbers: +33/0033/0 prefix then 9 digits in pairs.
		regexp.MustCompile(`(?:\+33|0033|0)\s*[1-9](?:[\s.-]*\d{2}){4}`),
		// Generic international form.
		regexp.MustCompile(`\+?\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{1,4}[\s.-]?\d{1,9}`),
		// Four separated national groups.
		regexp.MustCompile(`\d{2,3}[\s.-]\d{2,3}[\s.-]\d{2,3}[\s.-]\d{2,3}`),
	}

	tagRegex = regexp.MustCompile(`<[^>]*>`)
)

// Phones harvests phone numbers from raw HTML, normalized to a canonical
// +-prefixed digit string. Order of the returned slice is unspecified.
func Phones(html string) []string {
	seen := make(map[string]struct{})
	cleanText := stripHTMLTags(html)

	for _, pattern := range phonePatterns {
		for _, m := range pattern.FindAllString(cleanText, -1) {
			phone := normalizePhone(m)
			if isValidPhone(phone) {
				seen[phone] = struct{}{}
			}
		}
	}

	phones := make([]string, 0, len(seen))
	for p := range seen {
		phones = append(phones, p)
	}
	return phones
}

func stripHTMLTags(html string) string {
	return tagRegex.ReplaceAllString(html, " ")
}

// normalizePhone keeps digits and a leading +, then rewrites French
// dialing prefixes (0033..., 0...) to the +33 international form.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if (c >= '0' && c <= '9') || c == '+' {
			b.WriteRune(c)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "0033"):
		return "+33" + digits[4:]
	case strings.HasPrefix(digits, "0") && !strings.HasPrefix(digits, "00"):
		return "+33" + digits[1:]
	default:
		return digits
	}
}

func isValidPhone(phone string) bool {
	digitCount := 0
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digitCount++
		}
	}
	return digitCount >= 10 && digitCount <= 15 && !strings.Contains(phone, "1234567890")
}
