package lead

import (
	"testing"

	"leadaudit/internal/audit"
	"leadaudit/internal/scraper"
)

func sslResult(tech string) *audit.Result {
	return &audit.Result{
		Technologies: []audit.Technology{{Name: tech, Category: "JS Framework"}},
		HasSSL:       true,
	}
}

func TestCalculateScoreHot(t *testing.T) {
	scraped := scraper.ScrapedData{
		Emails: []string{"jane.doe@acme.fr"},
		Phones: []string{"+33612345678"},
	}
	if got := CalculateScore(scraped, sslResult("React")); got != ScoreHot {
		t.Errorf("score = %v, want HOT", got)
	}
}

func TestCalculateScoreGenericEmailNotHot(t *testing.T) {
	scraped := scraper.ScrapedData{
		Emails: []string{"info@acme.fr"},
		Phones: []string{"+33612345678"},
	}
	if got := CalculateScore(scraped, sslResult("React")); got != ScoreWarm {
		t.Errorf("score = %v, want WARM when the only email is generic", got)
	}
}

func TestCalculateScoreLegacyTechNotHot(t *testing.T) {
	scraped := scraper.ScrapedData{
		Emails: []string{"jane.doe@acme.fr"},
		Phones: []string{"+33612345678"},
	}
	if got := CalculateScore(scraped, sslResult("WordPress")); got != ScoreWarm {
		t.Errorf("score = %v, want WARM without a modern framework", got)
	}
}

func TestCalculateScoreNoSSLNotHot(t *testing.T) {
	scraped := scraper.ScrapedData{
		Emails: []string{"jane.doe@acme.fr"},
		Phones: []string{"+33612345678"},
	}
	result := &audit.Result{
		Technologies: []audit.Technology{{Name: "React", Category: "JS Framework"}},
		HasSSL:       false,
	}
	if got := CalculateScore(scraped, result); got != ScoreWarm {
		t.Errorf("score = %v, want WARM without SSL", got)
	}
}

func TestCalculateScoreWarmSignals(t *testing.T) {
	emailOnly := scraper.ScrapedData{Emails: []string{"jane@acme.fr"}}
	if got := CalculateScore(emailOnly, nil); got != ScoreWarm {
		t.Errorf("personal email alone should score WARM, got %v", got)
	}

	phoneOnly := scraper.ScrapedData{Phones: []string{"+33612345678"}}
	if got := CalculateScore(phoneOnly, nil); got != ScoreWarm {
		t.Errorf("phone alone should score WARM, got %v", got)
	}
}

func TestCalculateScoreCold(t *testing.T) {
	if got := CalculateScore(scraper.ScrapedData{}, nil); got != ScoreCold {
		t.Errorf("empty scrape should score COLD, got %v", got)
	}

	genericOnly := scraper.ScrapedData{Emails: []string{"contact@gmail.com"}}
	if got := CalculateScore(genericOnly, sslResult("React")); got != ScoreCold {
		t.Errorf("generic email with no phone should score COLD, got %v", got)
	}
}

func TestScoreString(t *testing.T) {
	if ScoreHot.String() != "HOT" || ScoreWarm.String() != "WARM" || ScoreCold.String() != "COLD" {
		t.Error("score labels wrong")
	}
}
