package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/MShaffar19/traitflow/internal/runtime/config"
)

// ChannelFactory allows overriding the channel pubsub creation for testing.
var ChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

// buildChannel creates the in-process Go channel transport. It preserves
// publish order per topic, which the dispatcher integration tests rely on.
func buildChannel(_ *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	pub, sub := ChannelFactory(gochannel.Config{}, logger)
	return Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}
