// Package traitflow is a trait-schema runtime on top of Watermill: it loads
// versioned trait definitions, validates and encodes property, command, and
// event payloads into a compact TLV wire form, and dispatches commands across
// a message fabric (Kafka, NATS, RabbitMQ, or in-process Go channels) with
// correlation-based completion pairing.
//
// A trait is the unit of device capability: a versioned set of typed
// properties, commands, and events identified by a (vendor id, trait id)
// pair. Schemas are authored as JSON documents, validated against an
// embedded meta-schema, and loaded into immutable TraitSchema values that
// can be shared freely across goroutines.
//
// # Dispatching
//
// Service hosts the Watermill router. RegisterTrait binds a schema to its
// command and completion topics; RegisterCommandHandler installs the
// server-side behaviour; Dispatch encodes a request, publishes it, and
// blocks until the paired completion arrives, the deadline passes, or the
// context is cancelled. Subscribe and PublishEvent carry trait events with
// the same schema-checked encoding.
//
// # Wire format
//
// Payloads travel as tag-length-value records keyed by the schema's stable
// wire tags. Real-valued properties are carried as fixed-point integers
// scaled by their declared precision, so a decode reproduces every value to
// within that precision. Extendable messages and enums tolerate data from
// newer schema versions; closed ones reject it.
//
// # Evolution
//
// CheckCompatibility compares two versions of a trait schema and reports
// every breaking change: removed or retyped tags, narrowed ranges, shrunk
// length bounds, removed enum values, commands, or events.
//
// The default middleware chain adds correlation IDs, structured logging,
// OpenTelemetry tracing, Prometheus metrics, retry with exponential
// backoff, poison queue forwarding, and panic recovery. Custom middleware
// and transports plug in through ServiceDependencies.
package traitflow
