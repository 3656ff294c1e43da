package event

import (
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler()

	registry.Register(handler, ledger.EventTypePostingApplied, ledger.EventTypePostingCancelled)

	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(ledger.EventTypePostingApplied))
	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(ledger.EventTypePostingCancelled))
	assert.Empty(t, registry.GetHandlers(ledger.EventTypeCustomerRenamed))
}

func TestHandlerRegistry_TypedBeforeWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newRecordingHandler()
	wildcard := newRecordingHandler()

	registry.Register(wildcard)
	registry.Register(typed, ledger.EventTypePostingApplied)

	assert.Equal(t, []shared.EventHandler{typed, wildcard}, registry.GetHandlers(ledger.EventTypePostingApplied))
	assert.Equal(t, []shared.EventHandler{wildcard}, registry.GetHandlers("Anything"))
}

func TestHandlerRegistry_NoDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler()

	registry.Register(handler, ledger.EventTypePostingApplied)
	registry.Register(handler, ledger.EventTypePostingApplied)
	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(ledger.EventTypePostingApplied), 1)
	assert.Equal(t, 1, registry.Count())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	h1 := newRecordingHandler()
	h2 := newRecordingHandler()

	registry.Register(h1, ledger.EventTypePostingApplied)
	registry.Register(h2, ledger.EventTypePostingApplied)
	registry.Register(h1)

	registry.Unregister(h1)

	assert.Equal(t, []shared.EventHandler{h2}, registry.GetHandlers(ledger.EventTypePostingApplied))
	assert.Equal(t, 1, registry.Count())

	registry.Unregister(h2)
	assert.Empty(t, registry.GetHandlers(ledger.EventTypePostingApplied))
	assert.Equal(t, 0, registry.Count())
}
