package event

import (
	"context"
	"testing"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("billing.account.overspent", "billing.credit.threshold_crossed")

	registry.Register(handler, "billing.account.overspent", "billing.credit.threshold_crossed")

	handlers := registry.GetHandlers("billing.account.overspent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("billing.credit.threshold_crossed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("billing.invoice.closed")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler() // No event types = wildcard

	registry.Register(handler)

	handlers := registry.GetHandlers("billing.account.overspent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("AnyEventType")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("billing.account.overspent")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "billing.account.overspent")
	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("billing.account.overspent")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("billing.invoice.recomputed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcardHandler, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("billing.account.overspent")
	handler2 := newMockHandler("billing.account.overspent")

	registry.Register(handler1, "billing.account.overspent")
	registry.Register(handler2, "billing.account.overspent")

	handlers := registry.GetHandlers("billing.account.overspent")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("billing.account.overspent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcardHandler := newMockHandler()

	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("AnyEvent")
	assert.Len(t, handlers, 1)

	registry.Unregister(wildcardHandler)

	handlers = registry.GetHandlers("AnyEvent")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("billing.account.overspent")
	handler2 := newMockHandler("billing.reconciliation.discrepancy_escalated")
	wildcardHandler := newMockHandler()

	registry.Register(handler1, "billing.account.overspent")
	registry.Register(handler2, "billing.reconciliation.discrepancy_escalated")
	registry.Register(wildcardHandler)

	allHandlers := registry.GetAllHandlers()
	assert.Len(t, allHandlers, 3)
}

func TestHandlerRegistry_GetAllHandlers_NoDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("billing.account.overspent", "billing.credit.threshold_crossed")

	// Register same handler for multiple event types
	registry.Register(handler, "billing.account.overspent", "billing.credit.threshold_crossed")

	allHandlers := registry.GetAllHandlers()
	assert.Len(t, allHandlers, 1)
}
