// Package scraper implements the two-tier fetch strategy used to harvest
// contact data from lead websites: a fast plain-HTTP GET first, falling
// back to a headless browser when the fast path recovers nothing useful.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"leadaudit/internal/extract"
	"leadaudit/internal/metrics"
)

// DefaultUserAgent is the desktop UA presented on fast fetches.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// ScrapedData is the output of scraping one URL.
type ScrapedData struct {
	URL       string    `json:"url"`
	Emails    []string  `json:"emails"`
	Phones    []string  `json:"phones"`
	HTML      *string   `json:"html,omitempty"`
	ScrapedAt time.Time `json:"scrapedAt"`
}

// Cache maps normalized URLs to scrape results. Reads are lock-free;
// entries are never evicted since job batches bound its size.
type Cache struct {
	entries sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(url string) (ScrapedData, bool) {
	v, ok := c.entries.Load(url)
	if !ok {
		return ScrapedData{}, false
	}
	return v.(ScrapedData), true
}

func (c *Cache) Set(url string, data ScrapedData) {
	c.entries.Store(url, data)
}

// Options configures a SmartScraper.
type Options struct {
	TimeoutMs     int
	UserAgent     string
	RespectRobots bool
	Logger        *slog.Logger
}

// SmartScraper owns the fetch cache and the lazily launched browser for
// the lifetime of one worker process. Its mutating operations are
// serialized; leads are scraped one at a time.
type SmartScraper struct {
	mu      sync.Mutex
	cache   *Cache
	client  *http.Client
	browser *managedBrowser

	timeout       time.Duration
	userAgent     string
	respectRobots bool
	robots        robotsCache
	logger        *slog.Logger
}

// New builds a SmartScraper. The browser is not launched until the first
// fast-fetch miss.
func New(opts Options) *SmartScraper {
	timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SmartScraper{
		cache:         NewCache(),
		client:        &http.Client{Timeout: timeout},
		timeout:       timeout,
		userAgent:     userAgent,
		respectRobots: opts.RespectRobots,
		logger:        logger,
	}
}

// Scrape fetches one URL and harvests emails and phones from it. Cached
// results are returned as-is; otherwise the fast path runs first and the
// browser path only when the fast path yields no contact data.
func (s *SmartScraper) Scrape(ctx context.Context, rawURL string) (ScrapedData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return ScrapedData{}, err
	}

	if cached, ok := s.cache.Get(normalized); ok {
		s.logger.Debug("using cached scrape", "url", normalized)
		metrics.RecordScrape("cache")
		return cached, nil
	}

	if data, err := s.tryFastFetch(ctx, normalized); err == nil && hasEnoughData(data) {
		s.logger.Debug("fast fetch succeeded", "url", normalized, "emails", len(data.Emails))
		metrics.RecordScrape("http")
		s.cache.Set(normalized, data)
		return data, nil
	}

	s.logger.Debug("fast fetch insufficient, falling back to browser", "url", normalized)
	data, err := s.scrapeWithBrowser(ctx, normalized)
	if err != nil {
		return ScrapedData{}, err
	}
	metrics.RecordScrape("browser")
	s.cache.Set(normalized, data)
	return data, nil
}

// tryFastFetch performs a plain HTTP GET bounded by the configured timeout.
func (s *SmartScraper) tryFastFetch(ctx context.Context, pageURL string) (ScrapedData, error) {
	if s.respectRobots && !s.robotsAllowed(ctx, pageURL) {
		return ScrapedData{}, fmt.Errorf("robots.txt disallows %s", pageURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ScrapedData{}, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return ScrapedData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ScrapedData{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ScrapedData{}, err
	}

	return parseHTML(string(body), pageURL), nil
}

// Close tears down the browser if one was launched. Safe to call more
// than once.
func (s *SmartScraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	browser := s.browser
	s.browser = nil
	return browser.close()
}

// NormalizeURL prepends https:// when the scheme is absent and emits the
// canonical serialization of the parsed URL.
func NormalizeURL(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

func parseHTML(html, pageURL string) ScrapedData {
	return ScrapedData{
		URL:       pageURL,
		Emails:    extract.Emails(html),
		Phones:    extract.Phones(html),
		HTML:      &html,
		ScrapedAt: time.Now().UTC(),
	}
}

// hasEnoughData reports whether a fast fetch recovered anything worth
// keeping; otherwise the browser path runs.
func hasEnoughData(data ScrapedData) bool {
	return len(data.Emails) > 0 || len(data.Phones) > 0
}
