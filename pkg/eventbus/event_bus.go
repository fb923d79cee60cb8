// Package eventbus publishes and consumes conversion lifecycle events.
package eventbus

import (
	"context"

	"github.com/dukex/flowbridge/pkg/events"
)

// Event is any lifecycle event from the events package.
type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct. A returned error
// rejects the message so the transport can redeliver it.
type EventHandler func(ctx context.Context, event any) error

// EventBus is both ends of one transport. Handlers must be registered before Subscribe.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
