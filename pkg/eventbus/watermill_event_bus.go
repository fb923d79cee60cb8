package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowbridge/pkg/events"
)

var ErrUnknownEventType = errors.New("unknown event type")

// decoders build an empty typed event for each known event type.
var decoders = map[events.EventType]func() any{
	events.ConversionCompletedEvent: func() any { return &events.ConversionCompleted{} },
	events.ConversionFailedEvent:    func() any { return &events.ConversionFailed{} },
	events.ConversionDeletedEvent:   func() any { return &events.ConversionDeleted{} },
	events.ConversionsPurgedEvent:   func() any { return &events.ConversionsPurged{} },
}

type Option func(*WatermillEventBus)

// WithLogger sets the logger used to report rejected messages.
func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		if logger != nil {
			eb.logger = logger
		}
	}
}

// WatermillEventBus carries events over one watermill topic. The event type travels in
// message metadata so the consumer can decode the payload into the matching struct.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) EventBus {
	eb := &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     slog.New(slog.DiscardHandler),
		handlers:   make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	return eb
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))
	msg.SetContext(ctx)

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if _, known := decoders[eventType]; !known {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	eb.mu.Lock()
	eb.handlers[eventType] = handler
	eb.mu.Unlock()

	return nil
}

// Subscribe starts consuming the topic in the background until ctx is done or the
// subscriber is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go eb.consume(ctx, messages)

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			if err := eb.dispatch(ctx, msg); err != nil {
				eb.logger.WarnContext(ctx, "Rejected event message",
					"message_id", msg.UUID,
					"event_type", msg.Metadata.Get(events.EventTypeMetadataKey),
					"error", err)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}
}

// dispatch decodes msg and runs its handler. Messages without a handler are accepted
// and dropped.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) error {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, ok := eb.handlers[eventType]
	eb.mu.RUnlock()

	if !ok {
		return nil
	}

	event := decoders[eventType]()
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	return handler(ctx, event)
}

func (eb *WatermillEventBus) Close() error {
	return errors.Join(eb.publisher.Close(), eb.subscriber.Close())
}
