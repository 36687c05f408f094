package audit

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Technology is a single detection hit. Equality is by (Name, Category);
// Version is carried for the persisted audit blob but never populated by
// the pattern catalog.
type Technology struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Version  *string `json:"version"`
}

// patternKind selects how a pattern is applied to a document. The set is
// closed; matching dispatches on the kind rather than an interface.
type patternKind int

const (
	patternScript patternKind = iota
	patternHTML
	patternMetaGenerator
)

type techPattern struct {
	kind  patternKind
	regex *regexp.Regexp
}

type techEntry struct {
	name     string
	category string
	patterns []techPattern
}

// techCatalog is built once at process start; hot paths never recompile
// the regexes.
var techCatalog = []techEntry{
	{
		name:     "React",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternScript, regexp.MustCompile(`react(?:-dom)?\.(?:development|production)\.min\.js`)},
			{patternHTML, regexp.MustCompile(`data-react`)},
		},
	},
	{
		name:     "Vue.js",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternScript, regexp.MustCompile(`vue(?:\.min)?\.js`)},
			{patternHTML, regexp.MustCompile(`v-bind|v-if|v-for`)},
		},
	},
	{
		name:     "WordPress",
		category: "CMS",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`/wp-content/|/wp-includes/`)},
			{patternMetaGenerator, regexp.MustCompile(`WordPress`)},
		},
	},
	{
		name:     "Next.js",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`__NEXT_DATA__|_next/static`)},
		},
	},
	{
		name:     "Nuxt.js",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`__NUXT__|_nuxt/`)},
		},
	},
	{
		name:     "Angular",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`ng-app|ng-controller`)},
		},
	},
	{
		name:     "Svelte",
		category: "Frontend Framework",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`svelte`)},
		},
	},
	{
		name:     "Tailwind CSS",
		category: "CSS Framework",
		patterns: []techPattern{
			{patternHTML, regexp.MustCompile(`class="[^"]*(?:flex|grid|mx-auto|p-\d+|text-|bg-)`)},
		},
	},
	{
		name:     "Bootstrap",
		category: "CSS Framework",
		patterns: []techPattern{
			{patternScript, regexp.MustCompile(`bootstrap(?:\.min)?\.js`)},
			{patternHTML, regexp.MustCompile(`class="[^"]*(?:col-md|btn-primary|container-fluid)`)},
		},
	},
	{
		name:     "jQuery",
		category: "JS Library",
		patterns: []techPattern{
			{patternScript, regexp.MustCompile(`jquery(?:-\d+\.\d+\.\d+)?(?:\.min)?\.js`)},
		},
	},
}

// Detect fingerprints the technologies used by a page. The first matching
// pattern for a catalog entry suffices; output is deduplicated by
// (name, category). Detection never fails: malformed or empty HTML just
// yields fewer hits.
func Detect(html string) []Technology {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc = nil
	}

	seen := make(map[[2]string]struct{})
	technologies := make([]Technology, 0)

	for _, entry := range techCatalog {
		for _, pattern := range entry.patterns {
			if !matchPattern(pattern, doc, html) {
				continue
			}
			key := [2]string{entry.name, entry.category}
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				technologies = append(technologies, Technology{
					Name:     entry.name,
					Category: entry.category,
				})
			}
			break
		}
	}

	return technologies
}

// matchPattern applies one pattern against the parsed document or the raw
// HTML depending on its kind.
func matchPattern(p techPattern, doc *goquery.Document, html string) bool {
	switch p.kind {
	case patternScript:
		if doc == nil {
			return false
		}
		matched := false
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if src, ok := sel.Attr("src"); ok {
				matched = p.regex.MatchString(src)
			} else {
				matched = p.regex.MatchString(sel.Text())
			}
			return !matched
		})
		return matched
	case patternHTML:
		return p.regex.MatchString(html)
	case patternMetaGenerator:
		if doc == nil {
			return false
		}
		matched := false
		doc.Find("meta[name=generator]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if content, ok := sel.Attr("content"); ok {
				matched = p.regex.MatchString(content)
			}
			return !matched
		})
		return matched
	}
	return false
}
