package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

// The browser tier must survive pages that load slower than the 5s page
// creation guard: only creation is bounded by it, while navigation gets
// the configured timeout and the content read its own 5s window.
func TestBrowserScrapeOutlivesCreationGuard(t *testing.T) {
	if _, has := launcher.LookPath(); !has {
		t.Skip("no browser binary available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		// The fast tier identifies itself; starve it so the browser
		// tier runs, and serve the browser only after the page has
		// been open longer than the creation guard.
		if r.Header.Get("User-Agent") == DefaultUserAgent {
			w.Write([]byte(`<html><body>nothing here</body></html>`))
			return
		}
		time.Sleep(6 * time.Second)
		w.Write([]byte(`<html><body>Contact: jane@slow.example</body></html>`))
	}))
	defer srv.Close()

	s := New(Options{TimeoutMs: 20000})
	defer s.Close()

	data, err := s.Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if !contains(data.Emails, "jane@slow.example") {
		t.Errorf("emails = %v, want the slow page's contact", data.Emails)
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
