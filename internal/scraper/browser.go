package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// managedBrowser bundles the rod browser with its launcher so both are
// torn down together.
type managedBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// ignorableBrowserErrors are noisy CDP-level failures that carry no
// signal; they are suppressed when logging.
var ignorableBrowserErrors = []string{
	"data did not match any variant",
	"ResetWithoutClosingHandshake",
	"Connection reset",
}

func isIgnorableBrowserError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	for _, s := range ignorableBrowserErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// initBrowser launches the headless browser on first use. Callers hold
// the scraper mutex.
func (s *SmartScraper) initBrowser() error {
	if s.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("window-size", "1920,1080")

	controlURL, err := l.Launch()
	if err != nil {
		return err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return err
	}

	s.browser = &managedBrowser{browser: browser, launcher: l}
	return nil
}

// scrapeWithBrowser opens a fresh page, navigates, waits briefly for late
// scripting, and reads the rendered document. The page is closed on both
// success and failure paths.
func (s *SmartScraper) scrapeWithBrowser(ctx context.Context, pageURL string) (ScrapedData, error) {
	if err := s.initBrowser(); err != nil {
		return ScrapedData{}, err
	}

	page, err := s.browser.browser.Context(ctx).Timeout(5 * time.Second).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return ScrapedData{}, err
	}
	// The creation guard must not outlive creation: a page inherits the
	// context of the browser clone it came from, so re-anchor it before
	// any per-operation Timeout clones are taken from it.
	page = page.Context(ctx)
	defer s.closePage(page)

	data, err := s.scrapePage(page, pageURL)
	if err != nil {
		return ScrapedData{}, err
	}
	return data, nil
}

func (s *SmartScraper) scrapePage(page *rod.Page, pageURL string) (ScrapedData, error) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil && !isIgnorableBrowserError(err) {
		s.logger.Warn("set viewport failed", "url", pageURL, "error", err)
	}

	nav := page.Timeout(s.timeout)
	if err := nav.Navigate(pageURL); err != nil {
		return ScrapedData{}, err
	}
	if err := nav.WaitLoad(); err != nil {
		return ScrapedData{}, err
	}

	// Give late scripting a moment to inject content before reading.
	time.Sleep(500 * time.Millisecond)

	html, err := page.Timeout(5 * time.Second).HTML()
	if err != nil {
		return ScrapedData{}, err
	}

	return parseHTML(html, pageURL), nil
}

// closePage tears the tab down even when the scrape context is already
// cancelled, so slow or failed scrapes do not leak tabs.
func (s *SmartScraper) closePage(page *rod.Page) {
	if err := page.Context(context.Background()).Timeout(2 * time.Second).Close(); err != nil && !isIgnorableBrowserError(err) {
		s.logger.Warn("page close failed", "error", err)
	}
}

// close tears the browser and its launcher down with a bounded wait.
func (m *managedBrowser) close() error {
	err := m.browser.Timeout(5 * time.Second).Close()
	m.launcher.Cleanup()
	return err
}
