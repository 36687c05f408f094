package lead

import "time"

// maxAuditAge is the idempotence window: a lead scraped or audited more
// recently than this is never re-processed.
const maxAuditAge = 24 * time.Hour

// ShouldAudit reports whether a lead is due for scraping and auditing.
// Recently processed leads are rejected; never-processed leads are
// accepted; stale leads are re-audited only when they still have no
// contact info at all.
func ShouldAudit(ld Lead) bool {
	return shouldAuditAt(ld, time.Now().UTC())
}

func shouldAuditAt(ld Lead, now time.Time) bool {
	scrapedAt := parseTimestamp(ld.ScrapedAt)
	auditedAt := parseTimestamp(ld.AuditedAt)

	if isRecentlyProcessed(scrapedAt, auditedAt, now) {
		return false
	}

	if scrapedAt == nil && auditedAt == nil {
		return true
	}

	return hasMissingContactInfo(ld)
}

// parseTimestamp decodes an RFC 3339 timestamp, treating malformed
// values as absent.
func parseTimestamp(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func isRecentlyProcessed(scrapedAt, auditedAt *time.Time, now time.Time) bool {
	recentlyScraped := scrapedAt != nil && now.Sub(*scrapedAt) < maxAuditAge
	recentlyAudited := auditedAt != nil && now.Sub(*auditedAt) < maxAuditAge
	return recentlyScraped || recentlyAudited
}

func hasMissingContactInfo(ld Lead) bool {
	hasNoEmail := ld.Email == nil && len(ld.AdditionalEmails) == 0
	hasNoPhone := len(ld.PhoneNumbers) == 0
	return hasNoEmail && hasNoPhone
}
