// Package kafka provides the Kafka event transport for conversion lifecycle events.
package kafka

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowbridge/pkg/events"
)

// ErrNoBrokers is returned when no Kafka broker address is configured.
var ErrNoBrokers = errors.New("KAFKA_BROKERS environment variable is not set or empty")

// BrokersFromEnv reads the comma separated KAFKA_BROKERS variable.
func BrokersFromEnv() []string {
	var brokers []string

	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// PartitionKey keys a message by its event key so all events of one conversion land
// on the same partition. Messages without a key fall back to their UUID.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if key := msg.Metadata.Get(events.EventMetadataKey); key != "" {
		return key, nil
	}

	return msg.UUID, nil
}

// CreateChannel connects a publisher and a consumer-group subscriber to brokers.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string, brokers []string) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	marshaler := kafka.NewWithPartitioningMarshaler(PartitionKey)

	subscriber, err := newSubscriber(logger, serviceName, brokers, marshaler)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	publisher, err := newPublisher(logger, serviceName, brokers, marshaler)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to create Kafka publisher: %w", err), subscriber.Close())
	}

	return publisher, subscriber, nil
}

func newSubscriber(logger watermill.LoggerAdapter, serviceName string, brokers []string, unmarshaler kafka.Unmarshaler) (*kafka.Subscriber, error) {
	config := kafka.DefaultSaramaSubscriberConfig()
	config.ClientID = serviceName
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           unmarshaler,
		OverwriteSaramaConfig: config,
		ConsumerGroup:         serviceName + "-audit",
		OTELEnabled:           true,
	}, logger)
}

func newPublisher(logger watermill.LoggerAdapter, serviceName string, brokers []string, marshaler kafka.Marshaler) (*kafka.Publisher, error) {
	config := kafka.DefaultSaramaSyncPublisherConfig()
	config.ClientID = serviceName
	config.Producer.RequiredAcks = sarama.WaitForAll

	return kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: config,
		OTELEnabled:           true,
	}, logger)
}
