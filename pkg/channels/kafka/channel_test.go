package kafka_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowbridge/pkg/channels/kafka"
	"github.com/dukex/flowbridge/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, kafka.BrokersFromEnv())

	t.Setenv("KAFKA_BROKERS", "")

	assert.Empty(t, kafka.BrokersFromEnv())
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Parallel()

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, "flowbridge", nil)
	require.ErrorIs(t, err, kafka.ErrNoBrokers)
	assert.Nil(t, pub)
	assert.Nil(t, sub)
}

func TestPartitionKey(t *testing.T) {
	t.Parallel()

	keyed := message.NewMessage("msg-1", nil)
	keyed.Metadata.Set(events.EventMetadataKey, "conversion-1")

	key, err := kafka.PartitionKey(events.Topic, keyed)
	require.NoError(t, err)
	assert.Equal(t, "conversion-1", key)

	unkeyed := message.NewMessage("msg-2", nil)

	key, err = kafka.PartitionKey(events.Topic, unkeyed)
	require.NoError(t, err)
	assert.Equal(t, "msg-2", key)
}
