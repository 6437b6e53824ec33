package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
)

type capturingNotifier struct {
	alerts []BillingAlert
	err    error
}

func (n *capturingNotifier) SendAlert(ctx context.Context, alert BillingAlert) error {
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alert)
	return nil
}

func TestBillingNotificationHandler(t *testing.T) {
	accountID := uuid.New()

	t.Run("translates overspend event into alert", func(t *testing.T) {
		notifier := &capturingNotifier{}
		handler := NewBillingNotificationHandler(zap.NewNop()).WithNotifier(notifier)

		event := domainBilling.NewAccountOverspentEvent(accountID,
			valueobject.NewMoneyBRLFromFloat(-2.50), valueobject.NewMoneyBRLFromFloat(50))
		require.NoError(t, handler.Handle(context.Background(), event))

		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "overspent", notifier.alerts[0].Kind)
		assert.Equal(t, accountID.String(), notifier.alerts[0].AccountID)
		assert.Contains(t, notifier.alerts[0].Message, "-2.5")
	})

	t.Run("translates threshold event into alert", func(t *testing.T) {
		notifier := &capturingNotifier{}
		handler := NewBillingNotificationHandler(zap.NewNop()).WithNotifier(notifier)

		event := domainBilling.NewThresholdCrossedEvent(accountID, domainBilling.Threshold75,
			valueobject.NewMoneyBRLFromFloat(38), valueobject.NewMoneyBRLFromFloat(50))
		require.NoError(t, handler.Handle(context.Background(), event))

		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "threshold_crossed", notifier.alerts[0].Kind)
		assert.Contains(t, notifier.alerts[0].Message, "75%")
	})

	t.Run("ignores unrelated events", func(t *testing.T) {
		notifier := &capturingNotifier{}
		handler := NewBillingNotificationHandler(zap.NewNop()).WithNotifier(notifier)

		event := &struct{ shared.BaseDomainEvent }{
			shared.NewBaseDomainEvent("some.other.event", "Thing", uuid.New(), accountID),
		}
		require.NoError(t, handler.Handle(context.Background(), event))
		assert.Empty(t, notifier.alerts)
	})

	t.Run("works without a notifier", func(t *testing.T) {
		handler := NewBillingNotificationHandler(zap.NewNop())

		event := domainBilling.NewAccountOverspentEvent(accountID,
			valueobject.NewMoneyBRLFromFloat(-1), valueobject.NewMoneyBRLFromFloat(50))
		assert.NoError(t, handler.Handle(context.Background(), event))
	})

	t.Run("propagates notifier failure", func(t *testing.T) {
		notifier := &capturingNotifier{err: assert.AnError}
		handler := NewBillingNotificationHandler(zap.NewNop()).WithNotifier(notifier)

		event := domainBilling.NewAccountOverspentEvent(accountID,
			valueobject.NewMoneyBRLFromFloat(-1), valueobject.NewMoneyBRLFromFloat(50))
		assert.Error(t, handler.Handle(context.Background(), event))
	})
}
