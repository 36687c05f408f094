// Package broadcast pushes realtime notifications to the backend, which
// fans them out to connected clients over websockets.
package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// envelope is the wire shape of every broadcast.
type envelope struct {
	UserID  string  `json:"userId"`
	Message message `json:"message"`
}

type message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp,omitempty"`
}

type progressData struct {
	LeadID string `json:"leadId"`
	Status string `json:"status"`
}

type completionData struct {
	SessionID      string `json:"sessionId"`
	ProcessedLeads int    `json:"processedLeads"`
	TotalLeads     int    `json:"totalLeads"`
}

type statsChangedData struct {
	Reason         string `json:"reason"`
	AuditSessionID string `json:"auditSessionId"`
}

// Service posts broadcast envelopes to the backend's internal endpoint.
type Service struct {
	client     *http.Client
	backendURL string
	logger     *slog.Logger
}

func New(backendURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:     &http.Client{Timeout: 10 * time.Second},
		backendURL: backendURL,
		logger:     logger,
	}
}

// Progress announces one lead finishing its audit.
func (s *Service) Progress(ctx context.Context, userID, leadID string) error {
	return s.send(ctx, envelope{
		UserID: userID,
		Message: message{
			Type: "audit-progress",
			Data: progressData{LeadID: leadID, Status: "completed"},
		},
	})
}

// Completion announces a whole session finishing, then nudges clients
// to refresh their stats.
func (s *Service) Completion(ctx context.Context, userID, sessionID string, processed, total int) error {
	err := s.send(ctx, envelope{
		UserID: userID,
		Message: message{
			Type: "audit-complete",
			Data: completionData{SessionID: sessionID, ProcessedLeads: processed, TotalLeads: total},
		},
	})
	if err != nil {
		return err
	}

	return s.send(ctx, envelope{
		UserID: userID,
		Message: message{
			Type:      "stats-changed",
			Data:      statsChangedData{Reason: "audit-completed", AuditSessionID: sessionID},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Service) send(ctx context.Context, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backendURL+"/internal/broadcast", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send broadcast: %w", err)
	}
	defer resp.Body.Close()

	s.logger.Debug("broadcast sent", "type", env.Message.Type, "status", resp.StatusCode)
	return nil
}
