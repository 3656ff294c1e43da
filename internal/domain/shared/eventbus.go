package shared

import "context"

// EventHandler reacts to published domain events. The reconciler marks the
// workspace dirty from them; metrics count them.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the handled types; nil means every event
	EventTypes() []string
}

// EventPublisher is the port services publish mutations through. Publishing
// never fails the mutation that produced the events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an EventPublisher that handlers can subscribe to
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
