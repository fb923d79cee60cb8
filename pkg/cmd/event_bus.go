// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowbridge/pkg/channels/gochannel"
	"github.com/dukex/flowbridge/pkg/channels/kafka"
	"github.com/dukex/flowbridge/pkg/eventbus"
)

// Event bus providers.
const (
	EventBusNone      = "none"
	EventBusGoChannel = "gochannel"
	EventBusKafka     = "kafka"
)

// ServiceName identifies this service to brokers and tracing backends.
const ServiceName = "flowbridge"

// NewEventBus creates the event bus for a provider. "none" and "" return a nil bus.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", EventBusNone:
		return nil, nil //nolint:nilnil // no bus configured
	case EventBusGoChannel:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create go channel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, eventbus.WithLogger(logger)), nil
	case EventBusKafka:
		pub, sub, err := kafka.CreateChannel(wmLogger, ServiceName, kafka.BrokersFromEnv())
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, eventbus.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
