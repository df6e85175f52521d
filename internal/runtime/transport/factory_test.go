package transport

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MShaffar19/traitflow/internal/runtime/config"
	"github.com/MShaffar19/traitflow/internal/runtime/logging"
)

func testLogger() watermill.LoggerAdapter {
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	serviceLogger := logging.NewSlogServiceLogger(slogger)
	return logging.NewWatermillAdapter(serviceLogger)
}

func TestDefaultFactoryBuildsChannelTransport(t *testing.T) {
	tr, err := DefaultFactory().Build(context.Background(), &config.Config{PubSubSystem: NameChannel}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, tr.Publisher)
	require.NotNil(t, tr.Subscriber)

	topic := "trait.0.1.event.1"
	messages, err := tr.Subscriber.Subscribe(context.Background(), topic)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	require.NoError(t, tr.Publisher.Publish(topic, msg))

	select {
	case received := <-messages:
		assert.Equal(t, string(msg.Payload), string(received.Payload))
		received.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestDefaultFactoryEmptySystemFallsBackToChannel(t *testing.T) {
	tr, err := DefaultFactory().Build(context.Background(), &config.Config{}, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestDefaultFactoryRejectsNilConfig(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), nil, testLogger())
	assert.Error(t, err)
}

func TestDefaultFactoryRejectsUnknownSystem(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), &config.Config{PubSubSystem: "carrier-pigeon"}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestCapabilities(t *testing.T) {
	assert.True(t, GetCapabilities(NameChannel).OrderedPerTopic)
	assert.False(t, GetCapabilities(NameChannel).Persistent)
	assert.True(t, GetCapabilities(NameKafka).Persistent)
	assert.True(t, GetCapabilities(NameKafka).ConsumerGroups)
	assert.True(t, GetCapabilities(NameRabbitMQ).Persistent)
	assert.Equal(t, "mystery", GetCapabilities("mystery").Name)
}
