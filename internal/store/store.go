// Package store persists lead enrichment results to the application's
// Postgres database. Identifiers are camelCase and quoted because the
// schema is owned by the backend's ORM.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leadaudit/internal/audit"
	"leadaudit/internal/lead"
	"leadaudit/internal/scraper"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// UserIDForSession resolves the user owning an audit session.
func (s *Store) UserIDForSession(ctx context.Context, sessionID string) (string, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT "userId" FROM "AuditSession" WHERE id = $1`, sessionID,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("fetch audit session %s: %w", sessionID, err)
	}
	return userID, nil
}

// LeadsForUser loads every lead with a domain for one user. Timestamps
// come back as RFC 3339 strings so downstream filtering can treat
// malformed values as absent.
func (s *Store) LeadsForUser(ctx context.Context, userID string) ([]lead.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id,
			domain,
			email,
			"additionalEmails",
			"phoneNumbers",
			"scrapedAt",
			"auditedAt"
		FROM "Lead"
		WHERE "userId" = $1 AND domain IS NOT NULL
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch leads for user %s: %w", userID, err)
	}
	defer rows.Close()

	var leads []lead.Lead
	for rows.Next() {
		var (
			ld               lead.Lead
			additionalEmails []string
			phoneNumbers     []string
			scrapedAt        *time.Time
			auditedAt        *time.Time
		)
		if err := rows.Scan(&ld.ID, &ld.Domain, &ld.Email, &additionalEmails, &phoneNumbers, &scrapedAt, &auditedAt); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		ld.AdditionalEmails = additionalEmails
		ld.PhoneNumbers = phoneNumbers
		ld.ScrapedAt = formatTimestamp(scrapedAt)
		ld.AuditedAt = formatTimestamp(auditedAt)
		leads = append(leads, ld)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead rows: %w", err)
	}

	s.logger.Debug("fetched leads", "user_id", userID, "count", len(leads))
	return leads, nil
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// enrichment is the merged write for one lead.
type enrichment struct {
	email            *string
	additionalEmails []string
	phoneNumbers     []string
	technologies     []string
	websiteAudit     []byte
}

// mergeEnrichment folds freshly scraped contact data into a lead's
// existing records. The primary email slot is filled from the first
// scraped address only when empty, and never duplicated into the
// additional set.
func mergeEnrichment(ld lead.Lead, scraped scraper.ScrapedData, result *audit.Result) (enrichment, error) {
	additional := dedupeSorted(append(append([]string{}, ld.AdditionalEmails...), scraped.Emails...))

	email := ld.Email
	if email == nil && len(scraped.Emails) > 0 {
		email = &scraped.Emails[0]
	}
	if email != nil {
		filtered := additional[:0]
		for _, e := range additional {
			if e != *email {
				filtered = append(filtered, e)
			}
		}
		additional = filtered
	}

	phones := dedupeSorted(append(append([]string{}, ld.PhoneNumbers...), scraped.Phones...))

	technologies := []string{}
	var websiteAudit []byte
	if result != nil {
		for _, tech := range result.Technologies {
			technologies = append(technologies, tech.Name)
		}
		doc := map[string]any{
			"technologies": result.Technologies,
			"ssl":          map[string]bool{"hasSSL": result.HasSSL},
		}
		var err error
		websiteAudit, err = json.Marshal(doc)
		if err != nil {
			return enrichment{}, fmt.Errorf("encode website audit: %w", err)
		}
	}

	return enrichment{
		email:            email,
		additionalEmails: additional,
		phoneNumbers:     phones,
		technologies:     technologies,
		websiteAudit:     websiteAudit,
	}, nil
}

func dedupeSorted(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || values[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// UpdateLeadEnrichment merges scraped data into the lead and writes the
// result in one statement. The stored websiteAudit is preserved when no
// fresh audit ran.
func (s *Store) UpdateLeadEnrichment(ctx context.Context, ld lead.Lead, scraped scraper.ScrapedData, result *audit.Result) error {
	merged, err := mergeEnrichment(ld, scraped, result)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		UPDATE "Lead"
		SET
			email = COALESCE($1, email),
			"additionalEmails" = $2,
			"phoneNumbers" = $3,
			technologies = $4,
			"websiteAudit" = COALESCE($5, "websiteAudit"),
			"scrapedAt" = $6,
			"auditedAt" = $7
		WHERE id = $8
	`, merged.email, merged.additionalEmails, merged.phoneNumbers, merged.technologies, merged.websiteAudit, now, now, ld.ID)
	if err != nil {
		s.logger.Warn("lead update failed", "lead_id", ld.ID, "error", err)
		return fmt.Errorf("update lead %s: %w", ld.ID, err)
	}
	return nil
}
