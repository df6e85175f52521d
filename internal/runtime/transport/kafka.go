package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MShaffar19/traitflow/internal/runtime/config"
)

// KafkaPublisherFactory allows overriding the publisher creation for testing.
var KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// KafkaSubscriberFactory allows overriding the subscriber creation for testing.
var KafkaSubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func buildKafka(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	publisherSarama := kafka.DefaultSaramaSyncPublisherConfig()
	subscriberSarama := kafka.DefaultSaramaSubscriberConfig()
	if conf.KafkaClientID != "" {
		publisherSarama.ClientID = conf.KafkaClientID
		subscriberSarama.ClientID = conf.KafkaClientID
	}

	publisher, err := KafkaPublisherFactory(
		kafka.PublisherConfig{
			Brokers:               conf.KafkaBrokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherSarama,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := KafkaSubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               conf.KafkaBrokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			ConsumerGroup:         conf.KafkaConsumerGroup,
			OverwriteSaramaConfig: subscriberSarama,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	return Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}
