// Package audit fingerprints websites: technology detection from a static
// pattern catalog plus a page-level audit (title, description, SSL).
package audit

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Result is the per-URL audit output.
type Result struct {
	URL             string       `json:"url"`
	Technologies    []Technology `json:"technologies"`
	HasSSL          bool         `json:"hasSsl"`
	PageTitle       *string      `json:"pageTitle"`
	MetaDescription *string      `json:"metaDescription"`
	AuditedAt       time.Time    `json:"auditedAt"`
}

// Website audits a fetched page. The SSL flag is derived from the URL
// scheme; title and description come from the parsed document when present.
func Website(html, url string) Result {
	technologies := Detect(html)

	var pageTitle, metaDescription *string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if title := doc.Find("title").First(); title.Length() > 0 {
			t := strings.TrimSpace(title.Text())
			pageTitle = &t
		}
		if content, ok := doc.Find("meta[name=description]").First().Attr("content"); ok {
			metaDescription = &content
		}
	}

	return Result{
		URL:             url,
		Technologies:    technologies,
		HasSSL:          strings.HasPrefix(url, "https://"),
		PageTitle:       pageTitle,
		MetaDescription: metaDescription,
		AuditedAt:       time.Now().UTC(),
	}
}
