// Package worker runs the lead audit loop: claim a job, load the
// session's leads, scrape and audit each one, persist the enrichment,
// and notify the backend.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"leadaudit/internal/audit"
	"leadaudit/internal/broadcast"
	"leadaudit/internal/lead"
	"leadaudit/internal/metrics"
	"leadaudit/internal/queue"
	"leadaudit/internal/scraper"
)

// jobName is the only job type this worker handles; everything else is
// returned to the queue for other consumers.
const jobName = "lead-audit"

const (
	idleSleep     = 500 * time.Millisecond
	errorBackoff  = 5 * time.Second
	progressEvery = 10
)

// Queue is the claim/settle surface of the job queue.
type Queue interface {
	FetchNext(ctx context.Context) (*queue.Job, error)
	Acknowledge(ctx context.Context, jobID string) error
	Requeue(ctx context.Context, jobID string) error
}

// Scraper fetches one URL and harvests contact data from it.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (scraper.ScrapedData, error)
}

// Store is the persistence surface the worker needs.
type Store interface {
	UserIDForSession(ctx context.Context, sessionID string) (string, error)
	LeadsForUser(ctx context.Context, userID string) ([]lead.Lead, error)
	UpdateLeadEnrichment(ctx context.Context, ld lead.Lead, scraped scraper.ScrapedData, result *audit.Result) error
}

// Broadcaster pushes realtime notifications to the backend.
type Broadcaster interface {
	Progress(ctx context.Context, userID, leadID string) error
	Completion(ctx context.Context, userID, sessionID string, processed, total int) error
}

type Worker struct {
	queue     Queue
	scraper   Scraper
	store     Store
	broadcast Broadcaster
	logger    *slog.Logger
}

func New(q Queue, sc Scraper, st Store, bc Broadcaster, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{queue: q, scraper: sc, store: st, broadcast: bc, logger: logger}
}

// Start runs the fetch loop until the context is cancelled. Jobs are
// processed one at a time; a failed job stays unacknowledged so the
// queue's stall detection can recover it.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("lead audit worker started")

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping")
			return err
		}

		job, err := w.queue.FetchNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error("failed to fetch job", "error", err)
			metrics.RecordJobFetchError()
			sleepCtx(ctx, errorBackoff)
			continue
		}
		if job == nil {
			sleepCtx(ctx, idleSleep)
			continue
		}

		w.logger.Info("received job", "job_id", job.ID, "name", job.Name)

		if job.Name != jobName {
			w.logger.Info("skipping job of unexpected type", "job_id", job.ID, "name", job.Name)
			if err := w.queue.Requeue(ctx, job.ID); err != nil {
				w.logger.Error("failed to requeue job", "job_id", job.ID, "error", err)
			}
			metrics.RecordJob("requeued")
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("job processing error", "job_id", job.ID, "error", err)
			metrics.RecordJob("failed")
			continue
		}
		metrics.RecordJob("completed")
	}
}

// processJob audits every due lead for one session. Per-lead failures
// are logged and skipped; only session-level failures fail the job.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) error {
	sessionID := job.Data.AuditSessionID
	userID := job.Data.UserID
	w.logger.Info("processing audit session", "session_id", sessionID, "user_id", userID)

	storedUserID, err := w.store.UserIDForSession(ctx, sessionID)
	if err != nil {
		return err
	}

	allLeads, err := w.store.LeadsForUser(ctx, storedUserID)
	if err != nil {
		return err
	}

	var leads []lead.Lead
	for _, ld := range allLeads {
		if lead.ShouldAudit(ld) {
			leads = append(leads, ld)
		} else {
			metrics.RecordLead("skipped")
		}
	}
	w.logger.Info("filtered leads needing audit", "due", len(leads), "total", len(allLeads))

	processed := 0
	total := len(leads)
	for _, ld := range leads {
		if err := w.auditLead(ctx, ld, userID); err != nil {
			w.logger.Error("failed to audit lead", "lead_id", ld.ID, "error", err)
			metrics.RecordLead("failed")
			continue
		}
		metrics.RecordLead("audited")
		processed++
		if processed%progressEvery == 0 {
			w.logger.Info("audit progress", "processed", processed, "total", total)
		}
	}

	w.logger.Info("audit session completed",
		"session_id", sessionID, "processed", processed, "total", total)

	if err := w.broadcast.Completion(ctx, userID, sessionID, processed, total); err != nil {
		w.logger.Warn("completion broadcast failed", "session_id", sessionID, "error", err)
		metrics.RecordBroadcastError()
	}

	return w.queue.Acknowledge(ctx, job.ID)
}

// auditLead scrapes one lead's website, audits the rendered page when
// available, and persists the merged enrichment.
func (w *Worker) auditLead(ctx context.Context, ld lead.Lead, userID string) error {
	url := ld.Domain
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	scraped, err := w.scraper.Scrape(ctx, url)
	if err != nil {
		return err
	}

	var result *audit.Result
	if scraped.HTML != nil {
		r := audit.Website(*scraped.HTML, scraped.URL)
		result = &r
	}

	score := lead.CalculateScore(scraped, result)
	w.logger.Debug("lead scored", "lead_id", ld.ID, "score", score.String())
	metrics.RecordScore(score.String())

	if err := w.store.UpdateLeadEnrichment(ctx, ld, scraped, result); err != nil {
		return err
	}

	if err := w.broadcast.Progress(ctx, userID, ld.ID); err != nil {
		w.logger.Warn("progress broadcast failed", "lead_id", ld.ID, "error", err)
		metrics.RecordBroadcastError()
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ Broadcaster = (*broadcast.Service)(nil)
