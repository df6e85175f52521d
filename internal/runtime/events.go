package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/MShaffar19/traitflow/internal/runtime/errors"
	idspkg "github.com/MShaffar19/traitflow/internal/runtime/ids"
	loggingpkg "github.com/MShaffar19/traitflow/internal/runtime/logging"
	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	"github.com/MShaffar19/traitflow/internal/runtime/tlv"
)

// Metadata keys carried on every fabric message.
const (
	metaCorrelationID = "traitflow_correlation_id"
	metaTraitKey      = "traitflow_trait"
	metaCommandID     = "traitflow_command_id"
	metaEventID       = "traitflow_event_id"
	metaSchemaVersion = "traitflow_schema_version"
	metaStatus        = "traitflow_status"
	metaFailureCode   = "traitflow_failure_code"
)

// Completion status values.
const (
	statusOK        = "ok"
	statusFailed    = "failed"
	statusNoHandler = "no_handler"
)

// Failure codes reported in completions.
const (
	codeProtocol = "protocol"
	codeHandler  = "handler"
	codeEncoding = "encoding"
)

func commandTopic(key schema.Key) string {
	return fmt.Sprintf("trait.%d.%d.command", key.VendorID, key.TraitID)
}

func completionTopic(key schema.Key) string {
	return fmt.Sprintf("trait.%d.%d.completion", key.VendorID, key.TraitID)
}

func eventTopic(key schema.Key, eventID uint32) string {
	return fmt.Sprintf("trait.%d.%d.event.%d", key.VendorID, key.TraitID, eventID)
}

// serveCommand builds the command-topic handler for one trait. Every
// outcome, including unknown commands and malformed payloads, produces a
// completion so the caller settles instead of waiting out its deadline.
// Only completion publish failures propagate to the router, where the retry
// middleware reruns the delivery.
func (s *Service) serveCommand(reg *traitRegistration) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		key := reg.schema.Key()
		correlationID := msg.Metadata.Get(metaCorrelationID)

		var commandID uint32
		if _, err := fmt.Sscanf(msg.Metadata.Get(metaCommandID), "%d", &commandID); err != nil {
			s.Logger.Error("Command without a command id", err, loggingpkg.LogFields{
				"trait":        key.String(),
				"message_uuid": msg.UUID,
			})
			return s.publishCompletion(msg.Context(), key, correlationID, statusFailed, codeProtocol, nil)
		}

		cd, ok := reg.schema.Command(commandID)
		if !ok {
			return s.publishCompletion(msg.Context(), key, correlationID, statusNoHandler, "", nil)
		}

		handler := reg.handler(commandID)
		if handler == nil {
			return s.publishCompletion(msg.Context(), key, correlationID, statusNoHandler, "", nil)
		}

		request, err := tlv.DecodeMessage(cd.Request, msg.Payload)
		if err != nil {
			s.Logger.Error("Failed to decode command request", err, loggingpkg.LogFields{
				"trait":          key.String(),
				"command_id":     commandID,
				"correlation_id": correlationID,
			})
			return s.publishCompletion(msg.Context(), key, correlationID, statusFailed, codeProtocol, nil)
		}

		response, err := handler(msg.Context(), request)
		if err != nil {
			s.Logger.Error("Command handler failed", err, loggingpkg.LogFields{
				"trait":          key.String(),
				"command_id":     commandID,
				"correlation_id": correlationID,
			})
			return s.publishCompletion(msg.Context(), key, correlationID, statusFailed, codeHandler, nil)
		}

		var payload []byte
		if cd.Response != nil {
			payload, err = tlv.EncodeMessage(cd.Response, response)
			if err != nil {
				s.Logger.Error("Failed to encode command response", err, loggingpkg.LogFields{
					"trait":          key.String(),
					"command_id":     commandID,
					"correlation_id": correlationID,
				})
				return s.publishCompletion(msg.Context(), key, correlationID, statusFailed, codeEncoding, nil)
			}
		}

		return s.publishCompletion(msg.Context(), key, correlationID, statusOK, "", payload)
	}
}

func (s *Service) publishCompletion(ctx context.Context, key schema.Key, correlationID, status, code string, payload []byte) error {
	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata.Set(metaCorrelationID, correlationID)
	msg.Metadata.Set(metaTraitKey, key.String())
	msg.Metadata.Set(metaStatus, status)
	if code != "" {
		msg.Metadata.Set(metaFailureCode, code)
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return s.publisher.Publish(completionTopic(key), msg)
}

// PublishEvent encodes the payload against the event's definition and
// publishes it on the trait's event topic. Ordering per topic follows the
// transport; the channel transport preserves publish order.
func (s *Service) PublishEvent(ctx context.Context, key schema.Key, eventID uint32, payload schema.Value) error {
	reg, ok := s.trait(key)
	if !ok {
		return errspkg.ErrTraitNotRegistered
	}
	ed, ok := reg.schema.Event(eventID)
	if !ok {
		return errspkg.ErrUnknownEvent
	}

	encoded, err := tlv.EncodeMessage(ed.Payload, payload)
	if err != nil {
		return err
	}

	msg := message.NewMessage(idspkg.CreateULID(), encoded)
	msg.Metadata.Set(metaTraitKey, key.String())
	msg.Metadata.Set(metaEventID, fmt.Sprintf("%d", eventID))
	msg.Metadata.Set(metaSchemaVersion, fmt.Sprintf("%d", reg.schema.Version))
	if ctx != nil {
		msg.SetContext(ctx)
	}

	return s.publisher.Publish(eventTopic(key, eventID), msg)
}

// Subscribe binds an event handler to one event of a registered trait. The
// payload is decoded and validated before fn runs; undecodable events fail
// the delivery so the retry and poison middlewares take over. Subscribe
// before Start.
func (s *Service) Subscribe(key schema.Key, eventID uint32, fn EventHandlerFunc) error {
	if fn == nil {
		return errspkg.ErrHandlerRequired
	}
	reg, ok := s.trait(key)
	if !ok {
		return errspkg.ErrTraitNotRegistered
	}
	ed, ok := reg.schema.Event(eventID)
	if !ok {
		return errspkg.ErrUnknownEvent
	}

	s.addNoPublisherHandler(
		fmt.Sprintf("%s-%s-subscriber", reg.schema.Name, ed.Name),
		eventTopic(key, eventID),
		func(msg *message.Message) error {
			payload, err := tlv.DecodeMessage(ed.Payload, msg.Payload)
			if err != nil {
				return err
			}
			return fn(msg.Context(), payload)
		},
	)
	return nil
}
