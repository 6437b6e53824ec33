package support

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTicket() billing.SupportTicket {
	return billing.SupportTicket{
		AccountID:   uuid.New(),
		Subject:     "Billing discrepancies require review",
		Description: "Reconciliation found 2 uncorrectable discrepancies",
		Discrepancies: []billing.Discrepancy{
			{Kind: billing.DiscrepancyAmountMismatch, AccountID: uuid.New()},
		},
		DetectedAt: time.Now().UTC(),
	}
}

func TestHTTPTicketClient_CreateTicket(t *testing.T) {
	t.Run("creates ticket and returns its reference", func(t *testing.T) {
		var received ticketRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"ticketId": "TICKET-42"})
		}))
		defer server.Close()

		client := NewHTTPTicketClient(config.SupportConfig{
			WebhookURL: server.URL,
			Token:      "secret-token",
			Timeout:    5 * time.Second,
		}, zap.NewNop())

		ticketID, err := client.CreateTicket(context.Background(), newTestTicket())
		require.NoError(t, err)
		assert.Equal(t, "TICKET-42", ticketID)
		assert.Len(t, received.Discrepancies, 1)
		assert.Equal(t, string(billing.DiscrepancyAmountMismatch), received.Discrepancies[0].Kind)
	})

	t.Run("fails on non-2xx response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewHTTPTicketClient(config.SupportConfig{
			WebhookURL: server.URL,
			Timeout:    5 * time.Second,
		}, zap.NewNop())

		_, err := client.CreateTicket(context.Background(), newTestTicket())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("fails when webhook URL is missing", func(t *testing.T) {
		client := NewHTTPTicketClient(config.SupportConfig{Timeout: time.Second}, zap.NewNop())

		_, err := client.CreateTicket(context.Background(), newTestTicket())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}
