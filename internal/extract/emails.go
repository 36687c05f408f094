package extract

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	genericPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(info|contact|hello|support|admin|sales|no-?reply|noreply)@`),
		regexp.MustCompile(`@(gmail|yahoo|hotmail|outlook|aol|protonmail|icloud)\.`),
	}
)

// Emails harvests email addresses from raw HTML. Matches are lowercased
// and deduplicated; obvious non-addresses (image filenames, sentry DSNs)
// are dropped. Order of the returned slice is unspecified.
func Emails(html string) []string {
	seen := make(map[string]struct{})
	for _, m := range emailRegex.FindAllString(html, -1) {
		email := strings.ToLower(m)
		if isInvalidEmail(email) {
			continue
		}
		seen[email] = struct{}{}
	}

	emails := make([]string, 0, len(seen))
	for e := range seen {
		emails = append(emails, e)
	}
	return emails
}

// IsGenericEmail reports whether an address is a shared mailbox
// (info@, support@, ...) or lives on a consumer mail provider.
func IsGenericEmail(email string) bool {
	for _, pattern := range genericPatterns {
		if pattern.MatchString(email) {
			return true
		}
	}
	return false
}

func isInvalidEmail(email string) bool {
	for _, suffix := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"} {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return strings.Contains(email, "@sentry")
}
