package lead

import (
	"leadaudit/internal/audit"
	"leadaudit/internal/extract"
	"leadaudit/internal/scraper"
)

// Score is the qualitative lead classification.
type Score int

const (
	ScoreCold Score = iota
	ScoreWarm
	ScoreHot
)

func (s Score) String() string {
	switch s {
	case ScoreHot:
		return "HOT"
	case ScoreWarm:
		return "WARM"
	default:
		return "COLD"
	}
}

// modernFrameworks are the technologies treated as a signal of an
// actively maintained website.
var modernFrameworks = map[string]struct{}{
	"React":   {},
	"Vue.js":  {},
	"Next.js": {},
	"Nuxt.js": {},
	"Svelte":  {},
}

// CalculateScore classifies a lead from its scraped contact data and the
// optional website audit. All four signals are needed for Hot; a personal
// email or a phone alone keeps the lead Warm.
func CalculateScore(scraped scraper.ScrapedData, result *audit.Result) Score {
	hasPersonalEmail := false
	for _, email := range scraped.Emails {
		if !extract.IsGenericEmail(email) {
			hasPersonalEmail = true
			break
		}
	}

	hasPhone := len(scraped.Phones) > 0

	hasModernTech := false
	hasSSL := false
	if result != nil {
		hasSSL = result.HasSSL
		for _, tech := range result.Technologies {
			if _, ok := modernFrameworks[tech.Name]; ok {
				hasModernTech = true
				break
			}
		}
	}

	switch {
	case hasPersonalEmail && hasPhone && hasModernTech && hasSSL:
		return ScoreHot
	case hasPersonalEmail || hasPhone:
		return ScoreWarm
	default:
		return ScoreCold
	}
}
