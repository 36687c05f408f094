package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsCache memoizes robots.txt per origin so repeated scrapes of one
// host fetch the policy once. A nil entry means no usable policy.
type robotsCache struct {
	entries sync.Map
}

// robotsAllowed checks the host's robots.txt when the scraper is
// configured to respect it. Fetch or parse failures count as allowed.
func (s *SmartScraper) robotsAllowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return true
	}

	origin := u.Scheme + "://" + u.Host
	v, ok := s.robots.entries.Load(origin)
	if !ok {
		data := s.fetchRobots(ctx, u)
		s.robots.entries.Store(origin, data)
		v = data
	}

	data, _ := v.(*robotstxt.RobotsData)
	if data == nil {
		return true
	}
	group := data.FindGroup(s.userAgent)
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (s *SmartScraper) fetchRobots(ctx context.Context, base *url.URL) *robotstxt.RobotsData {
	robotsURL := &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/robots.txt",
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
