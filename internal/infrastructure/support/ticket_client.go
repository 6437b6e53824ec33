// Package support integrates with the external support ticketing system.
// Reconciliation escalates uncorrectable billing discrepancies here; the
// package never mutates ledger state.
package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxTicketResponseSize limits the response body size to prevent memory exhaustion
const maxTicketResponseSize = 1 * 1024 * 1024 // 1MB max response

// HTTPTicketClient implements billing.SupportEscalator against the support
// webhook endpoint.
type HTTPTicketClient struct {
	webhookURL string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPTicketClient creates a ticket client from the support configuration
func NewHTTPTicketClient(cfg config.SupportConfig, logger *zap.Logger) *HTTPTicketClient {
	return &HTTPTicketClient{
		webhookURL: cfg.WebhookURL,
		token:      cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("support"),
	}
}

// ticketRequest is the wire format of a ticket creation call
type ticketRequest struct {
	AccountID     string              `json:"accountId"`
	Subject       string              `json:"subject"`
	Description   string              `json:"description"`
	DetectedAt    time.Time           `json:"detectedAt"`
	Discrepancies []ticketDiscrepancy `json:"discrepancies"`
}

type ticketDiscrepancy struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

type ticketResponse struct {
	TicketID string `json:"ticketId"`
}

// CreateTicket files a support ticket and returns its external reference
func (c *HTTPTicketClient) CreateTicket(ctx context.Context, ticket billing.SupportTicket) (string, error) {
	if c.webhookURL == "" {
		return "", fmt.Errorf("support webhook URL is not configured")
	}

	payload := ticketRequest{
		AccountID:   ticket.AccountID.String(),
		Subject:     ticket.Subject,
		Description: ticket.Description,
		DetectedAt:  ticket.DetectedAt,
	}
	for _, d := range ticket.Discrepancies {
		payload.Discrepancies = append(payload.Discrepancies, ticketDiscrepancy{
			Kind:        string(d.Kind),
			Description: d.Describe(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ticket payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ticket request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxTicketResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read ticket response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("support ticket creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("account_id", payload.AccountID),
		)
		return "", fmt.Errorf("ticket endpoint returned status %d", resp.StatusCode)
	}

	var parsed ticketResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode ticket response: %w", err)
	}

	c.logger.Info("support ticket created",
		zap.String("ticket_id", parsed.TicketID),
		zap.String("account_id", payload.AccountID),
		zap.Int("discrepancies", len(payload.Discrepancies)),
	)
	return parsed.TicketID, nil
}

// Ensure HTTPTicketClient implements SupportEscalator
var _ billing.SupportEscalator = (*HTTPTicketClient)(nil)
