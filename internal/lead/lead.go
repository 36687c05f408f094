// Package lead holds the enrichment target model together with the
// eligibility filter and the Hot/Warm/Cold scorer.
package lead

// Lead is a business record owned by an external writer; this worker only
// fills in the enrichment columns. Timestamps are RFC 3339 strings as
// serialized by the owning application; unparsable values count as absent.
type Lead struct {
	ID               string   `json:"id"`
	Domain           string   `json:"domain"`
	Email            *string  `json:"email"`
	AdditionalEmails []string `json:"additionalEmails"`
	PhoneNumbers     []string `json:"phoneNumbers"`
	ScrapedAt        *string  `json:"scrapedAt"`
	AuditedAt        *string  `json:"auditedAt"`
}
