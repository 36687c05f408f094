package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the audit worker.
// This is intentionally minimal and in-memory only.

var (
	mu sync.RWMutex

	jobsTotal    = make(map[string]int64)
	leadsTotal   = make(map[string]int64)
	scrapesTotal = make(map[string]int64)
	scoresTotal  = make(map[string]int64)

	jobFetchErrors  int64
	broadcastErrors int64
)

// RecordJob counts a queue job by outcome: completed, requeued, or failed.
func RecordJob(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[outcome]++
}

// RecordJobFetchError counts failed queue fetch attempts.
func RecordJobFetchError() {
	mu.Lock()
	defer mu.Unlock()
	jobFetchErrors++
}

// RecordLead counts a processed lead by outcome: audited, skipped, or failed.
func RecordLead(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	leadsTotal[outcome]++
}

// RecordScrape counts a scrape by the engine that served it: http,
// browser, or cache.
func RecordScrape(engine string) {
	mu.Lock()
	defer mu.Unlock()
	scrapesTotal[engine]++
}

// RecordScore counts a computed lead score by label.
func RecordScore(label string) {
	mu.Lock()
	defer mu.Unlock()
	scoresTotal[label]++
}

// RecordBroadcastError counts failed broadcast deliveries.
func RecordBroadcastError() {
	mu.Lock()
	defer mu.Unlock()
	broadcastErrors++
}

// Reset zeroes all counters. Test use only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal = make(map[string]int64)
	jobFetchErrors = 0
	leadsTotal = make(map[string]int64)
	scrapesTotal = make(map[string]int64)
	scoresTotal = make(map[string]int64)
	broadcastErrors = 0
}

func writeLabeled(b *strings.Builder, name, label string, values map[string]int64) {
	var keys []string
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=\"%s\"} %d\n", name, label, k, values[k])
	}
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP leadaudit_jobs_total Total queue jobs by outcome\n")
	b.WriteString("# TYPE leadaudit_jobs_total counter\n")
	writeLabeled(&b, "leadaudit_jobs_total", "outcome", jobsTotal)

	b.WriteString("# HELP leadaudit_job_fetch_errors_total Total failed queue fetches\n")
	b.WriteString("# TYPE leadaudit_job_fetch_errors_total counter\n")
	fmt.Fprintf(&b, "leadaudit_job_fetch_errors_total %d\n", jobFetchErrors)

	b.WriteString("# HELP leadaudit_leads_total Total leads processed by outcome\n")
	b.WriteString("# TYPE leadaudit_leads_total counter\n")
	writeLabeled(&b, "leadaudit_leads_total", "outcome", leadsTotal)

	b.WriteString("# HELP leadaudit_scrapes_total Total scrapes by serving engine\n")
	b.WriteString("# TYPE leadaudit_scrapes_total counter\n")
	writeLabeled(&b, "leadaudit_scrapes_total", "engine", scrapesTotal)

	b.WriteString("# HELP leadaudit_lead_scores_total Computed lead scores by label\n")
	b.WriteString("# TYPE leadaudit_lead_scores_total counter\n")
	writeLabeled(&b, "leadaudit_lead_scores_total", "score", scoresTotal)

	b.WriteString("# HELP leadaudit_broadcast_errors_total Total failed broadcast deliveries\n")
	b.WriteString("# TYPE leadaudit_broadcast_errors_total counter\n")
	fmt.Fprintf(&b, "leadaudit_broadcast_errors_total %d\n", broadcastErrors)

	return b.String()
}
