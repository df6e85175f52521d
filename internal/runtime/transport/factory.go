// Package transport builds the watermill publisher/subscriber pair the
// dispatcher runs on. The channel transport keeps the whole fabric
// in-process; kafka, nats, and rabbitmq back multi-process fabrics.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MShaffar19/traitflow/internal/runtime/config"
)

// Transport names accepted in Config.PubSubSystem.
const (
	NameChannel  = "channel"
	NameKafka    = "kafka"
	NameNATS     = "nats"
	NameRabbitMQ = "rabbitmq"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how the dispatcher initialises its message transport.
// Applications supply their own Factory to run on infrastructure the
// built-in set does not cover.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in factory that selects the transport
// from Config.PubSubSystem. An empty selection falls back to the in-process
// channel transport.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	switch strings.ToLower(conf.PubSubSystem) {
	case "", NameChannel:
		return buildChannel(conf, logger)
	case NameKafka:
		return buildKafka(conf, logger)
	case NameNATS:
		return buildNATS(conf, logger)
	case NameRabbitMQ:
		return buildRabbitMQ(ctx, conf, logger)
	default:
		return Transport{}, fmt.Errorf("unknown pubsub system %q", conf.PubSubSystem)
	}
}
