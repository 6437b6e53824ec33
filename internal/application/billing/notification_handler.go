package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
)

// BillingAlert is a human-facing notification derived from a billing event
type BillingAlert struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"` // "overspent", "threshold_crossed", "discrepancy_escalated"
	Message   string `json:"message"`
}

// AlertNotifier delivers billing alerts to account operators. Implementations
// may use e-mail, in-app messages or a webhook.
type AlertNotifier interface {
	SendAlert(ctx context.Context, alert BillingAlert) error
}

// BillingNotificationHandler turns billing domain events into operator alerts.
// It subscribes to overspend, threshold and escalation events; without a
// notifier configured the alerts are only logged.
type BillingNotificationHandler struct {
	logger   *zap.Logger
	notifier AlertNotifier
}

// NewBillingNotificationHandler creates a new handler for billing alerts
func NewBillingNotificationHandler(logger *zap.Logger) *BillingNotificationHandler {
	return &BillingNotificationHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier used to deliver alerts
func (h *BillingNotificationHandler) WithNotifier(notifier AlertNotifier) *BillingNotificationHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *BillingNotificationHandler) EventTypes() []string {
	return []string{
		domainBilling.EventTypeAccountOverspent,
		domainBilling.EventTypeThresholdCrossed,
		domainBilling.EventTypeDiscrepancyEscalated,
	}
}

// Handle processes a billing event and sends the corresponding alert
func (h *BillingNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var alert BillingAlert

	switch e := event.(type) {
	case *domainBilling.AccountOverspentEvent:
		alert = BillingAlert{
			AccountID: e.AccountID().String(),
			Kind:      "overspent",
			Message: fmt.Sprintf("Account spent past its credit ceiling of %s, current balance %s",
				e.Ceiling.String(), e.Balance.String()),
		}
	case *domainBilling.ThresholdCrossedEvent:
		alert = BillingAlert{
			AccountID: e.AccountID().String(),
			Kind:      "threshold_crossed",
			Message: fmt.Sprintf("Account usage reached %d%% of its credit ceiling (%s of %s)",
				int(e.Threshold), e.TotalBilled.String(), e.Ceiling.String()),
		}
	case *domainBilling.DiscrepancyEscalatedEvent:
		alert = BillingAlert{
			AccountID: e.AccountID().String(),
			Kind:      "discrepancy_escalated",
			Message:   fmt.Sprintf("Reconciliation escalated a %s discrepancy: %s", e.Kind, e.Detail),
		}
	default:
		return nil
	}

	h.logger.Info("billing alert",
		zap.String("account_id", alert.AccountID),
		zap.String("kind", alert.Kind),
		zap.String("message", alert.Message))

	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send billing alert: %w", err)
	}
	return nil
}
