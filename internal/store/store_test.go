package store

import (
	"encoding/json"
	"reflect"
	"testing"

	"leadaudit/internal/audit"
	"leadaudit/internal/lead"
	"leadaudit/internal/scraper"
)

func strPtr(s string) *string { return &s }

func TestMergeEnrichmentPromotesFirstEmail(t *testing.T) {
	ld := lead.Lead{ID: "l1", Domain: "example.com"}
	scraped := scraper.ScrapedData{
		Emails: []string{"jane@example.com", "bob@example.com"},
		Phones: []string{"+33612345678"},
	}

	merged, err := mergeEnrichment(ld, scraped, nil)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}
	if merged.email == nil || *merged.email != "jane@example.com" {
		t.Errorf("email = %v, want jane@example.com", merged.email)
	}
	if !reflect.DeepEqual(merged.additionalEmails, []string{"bob@example.com"}) {
		t.Errorf("additionalEmails = %v, primary should be excluded", merged.additionalEmails)
	}
	if !reflect.DeepEqual(merged.phoneNumbers, []string{"+33612345678"}) {
		t.Errorf("phoneNumbers = %v", merged.phoneNumbers)
	}
}

func TestMergeEnrichmentKeepsExistingEmail(t *testing.T) {
	ld := lead.Lead{
		ID:               "l1",
		Email:            strPtr("owner@example.com"),
		AdditionalEmails: []string{"old@example.com"},
		PhoneNumbers:     []string{"+33111111111"},
	}
	scraped := scraper.ScrapedData{
		Emails: []string{"new@example.com", "old@example.com"},
		Phones: []string{"+33222222222", "+33111111111"},
	}

	merged, err := mergeEnrichment(ld, scraped, nil)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}
	if *merged.email != "owner@example.com" {
		t.Errorf("email = %q, existing primary must win", *merged.email)
	}
	if !reflect.DeepEqual(merged.additionalEmails, []string{"new@example.com", "old@example.com"}) {
		t.Errorf("additionalEmails = %v", merged.additionalEmails)
	}
	if !reflect.DeepEqual(merged.phoneNumbers, []string{"+33111111111", "+33222222222"}) {
		t.Errorf("phoneNumbers = %v", merged.phoneNumbers)
	}
}

func TestMergeEnrichmentIdempotent(t *testing.T) {
	ld := lead.Lead{ID: "l1"}
	scraped := scraper.ScrapedData{
		Emails: []string{"a@x.com", "b@x.com"},
		Phones: []string{"+33612345678"},
	}

	first, err := mergeEnrichment(ld, scraped, nil)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}

	// Feed the merged state back in as the stored lead.
	ld.Email = first.email
	ld.AdditionalEmails = first.additionalEmails
	ld.PhoneNumbers = first.phoneNumbers

	second, err := mergeEnrichment(ld, scraped, nil)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}
	if *second.email != *first.email ||
		!reflect.DeepEqual(second.additionalEmails, first.additionalEmails) ||
		!reflect.DeepEqual(second.phoneNumbers, first.phoneNumbers) {
		t.Errorf("second merge changed state: %+v vs %+v", second, first)
	}
}

func TestMergeEnrichmentWebsiteAudit(t *testing.T) {
	version := "18.2.0"
	result := &audit.Result{
		URL: "https://example.com/",
		Technologies: []audit.Technology{
			{Name: "React", Category: "JS Framework", Version: &version},
		},
		HasSSL: true,
	}

	merged, err := mergeEnrichment(lead.Lead{ID: "l1"}, scraper.ScrapedData{}, result)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}
	if !reflect.DeepEqual(merged.technologies, []string{"React"}) {
		t.Errorf("technologies = %v", merged.technologies)
	}

	var doc struct {
		Technologies []audit.Technology `json:"technologies"`
		SSL          struct {
			HasSSL bool `json:"hasSSL"`
		} `json:"ssl"`
	}
	if err := json.Unmarshal(merged.websiteAudit, &doc); err != nil {
		t.Fatalf("decode websiteAudit: %v", err)
	}
	if len(doc.Technologies) != 1 || doc.Technologies[0].Name != "React" {
		t.Errorf("websiteAudit technologies = %+v", doc.Technologies)
	}
	if !doc.SSL.HasSSL {
		t.Error("websiteAudit ssl.hasSSL should be true")
	}
}

func TestMergeEnrichmentNoAuditLeavesAuditFieldsEmpty(t *testing.T) {
	merged, err := mergeEnrichment(lead.Lead{ID: "l1"}, scraper.ScrapedData{}, nil)
	if err != nil {
		t.Fatalf("mergeEnrichment: %v", err)
	}
	if len(merged.technologies) != 0 {
		t.Errorf("technologies = %v, want empty", merged.technologies)
	}
	if merged.websiteAudit != nil {
		t.Errorf("websiteAudit = %s, want nil so the stored value is preserved", merged.websiteAudit)
	}
}

func TestDedupeSorted(t *testing.T) {
	got := dedupeSorted([]string{"b", "a", "b", "c", "a"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("dedupeSorted = %v", got)
	}
}
