package transport

// Capabilities describes what delivery guarantees a transport offers so the
// dispatcher can adjust its expectations (ordering matters for per-stream
// event delivery; persistence matters for command retries across restarts).
type Capabilities struct {
	Name string

	// Persistent transports survive process restarts.
	Persistent bool
	// OrderedPerTopic transports deliver each topic's messages in publish
	// order to a single subscriber.
	OrderedPerTopic bool
	// ConsumerGroups allows competing consumers on one topic.
	ConsumerGroups bool
}

var capabilitiesByName = map[string]Capabilities{
	NameChannel: {
		Name:            NameChannel,
		OrderedPerTopic: true,
	},
	NameKafka: {
		Name:            NameKafka,
		Persistent:      true,
		OrderedPerTopic: true,
		ConsumerGroups:  true,
	},
	NameNATS: {
		Name:            NameNATS,
		OrderedPerTopic: true,
		ConsumerGroups:  true,
	},
	NameRabbitMQ: {
		Name:            NameRabbitMQ,
		Persistent:      true,
		OrderedPerTopic: true,
		ConsumerGroups:  true,
	},
}

// GetCapabilities returns the capability set for a built-in transport name.
// Unknown names report an empty Capabilities with only the name filled in.
func GetCapabilities(name string) Capabilities {
	if caps, ok := capabilitiesByName[name]; ok {
		return caps
	}
	return Capabilities{Name: name}
}
