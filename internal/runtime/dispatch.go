package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/MShaffar19/traitflow/internal/runtime/errors"
	idspkg "github.com/MShaffar19/traitflow/internal/runtime/ids"
	loggingpkg "github.com/MShaffar19/traitflow/internal/runtime/logging"
	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	"github.com/MShaffar19/traitflow/internal/runtime/tlv"
)

// DispatchState is the lifecycle state of a dispatched command.
type DispatchState uint8

const (
	StateIssued DispatchState = iota
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
)

func (s DispatchState) String() string {
	switch s {
	case StateIssued:
		return "ISSUED"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// DispatchReason classifies why a dispatch settled unsuccessfully.
type DispatchReason uint8

const (
	ReasonTimeout DispatchReason = iota + 1
	ReasonCancelled
	ReasonNoHandler
	ReasonRemoteFailure
)

func (r DispatchReason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonCancelled:
		return "cancelled"
	case ReasonNoHandler:
		return "no handler"
	case ReasonRemoteFailure:
		return "remote failure"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// DispatchError reports an unsuccessful dispatch outcome.
type DispatchError struct {
	Reason        DispatchReason
	Key           schema.Key
	CommandID     uint32
	CorrelationID string
	Code          string // remote failure code, when the remote reported one
	Err           error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("dispatch %s command %d on trait %s", e.Reason, e.CommandID, e.Key)
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error { return e.Err }

// completionResult is what the completion consumer hands to a waiting
// Dispatch call.
type completionResult struct {
	status  string
	code    string
	payload []byte
}

// pendingCommand pairs an issued command with its completion. The done
// channel is buffered so the completion consumer never blocks on a caller
// that has already given up.
type pendingCommand struct {
	correlationID string
	key           schema.Key
	commandID     uint32
	issuedAt      time.Time
	done          chan completionResult
}

func newPendingCommand(correlationID string, key schema.Key, commandID uint32) *pendingCommand {
	return &pendingCommand{
		correlationID: correlationID,
		key:           key,
		commandID:     commandID,
		issuedAt:      time.Now(),
		done:          make(chan completionResult, 1),
	}
}

// Dispatch encodes the request, publishes it on the trait's command topic,
// and blocks until the paired completion arrives, the deadline passes, or
// ctx is cancelled. A zero timeout falls back to the configured default;
// with no default either, the call is rejected. Concurrent dispatches are
// independent, each pairing through its own correlation id.
func (s *Service) Dispatch(ctx context.Context, key schema.Key, commandID uint32, payload schema.Value, timeout time.Duration) (schema.Value, error) {
	reg, ok := s.trait(key)
	if !ok {
		return schema.Value{}, errspkg.ErrTraitNotRegistered
	}
	cd, ok := reg.schema.Command(commandID)
	if !ok {
		return schema.Value{}, errspkg.ErrUnknownCommand
	}

	if timeout == 0 {
		timeout = s.Conf.DefaultDispatchTimeout
	}
	if timeout <= 0 {
		return schema.Value{}, errspkg.ErrTimeoutRequired
	}

	encoded, err := tlv.EncodeMessage(cd.Request, payload)
	if err != nil {
		return schema.Value{}, err
	}

	correlationID := idspkg.CreateULID()
	pending := newPendingCommand(correlationID, key, commandID)
	s.addPending(pending)
	defer s.removePending(correlationID)

	msg := message.NewMessage(idspkg.CreateULID(), encoded)
	msg.Metadata.Set(metaCorrelationID, correlationID)
	msg.Metadata.Set(metaTraitKey, key.String())
	msg.Metadata.Set(metaCommandID, fmt.Sprintf("%d", commandID))
	msg.Metadata.Set(metaSchemaVersion, fmt.Sprintf("%d", reg.schema.Version))
	msg.SetContext(ctx)

	dctx := DispatchContext{
		Key:           key,
		CommandID:     commandID,
		CorrelationID: correlationID,
		IssuedAt:      pending.issuedAt,
	}
	s.hooks.issued(dctx)
	s.stats(key, commandID).issued()

	if err := s.publisher.Publish(commandTopic(key), msg); err != nil {
		s.settleStats(dctx, StateFailed, err)
		return schema.Value{}, fmt.Errorf("failed to publish command: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-pending.done:
		return s.settleFromCompletion(dctx, cd, res)

	case <-ctx.Done():
		err := &DispatchError{
			Reason: ReasonCancelled, Key: key, CommandID: commandID,
			CorrelationID: correlationID, Err: ctx.Err(),
		}
		s.settleStats(dctx, StateCancelled, err)
		return schema.Value{}, err

	case <-timer.C:
		err := &DispatchError{
			Reason: ReasonTimeout, Key: key, CommandID: commandID,
			CorrelationID: correlationID,
		}
		s.settleStats(dctx, StateTimedOut, err)
		return schema.Value{}, err
	}
}

func (s *Service) settleFromCompletion(dctx DispatchContext, cd *schema.CommandDef, res completionResult) (schema.Value, error) {
	switch res.status {
	case statusOK:
		var out schema.Value
		if cd.Response != nil {
			decoded, err := tlv.DecodeMessage(cd.Response, res.payload)
			if err != nil {
				s.settleStats(dctx, StateFailed, err)
				return schema.Value{}, err
			}
			out = decoded
		} else {
			out = schema.Struct(nil)
		}
		s.settleStats(dctx, StateCompleted, nil)
		return out, nil

	case statusNoHandler:
		err := &DispatchError{
			Reason: ReasonNoHandler, Key: dctx.Key, CommandID: dctx.CommandID,
			CorrelationID: dctx.CorrelationID,
		}
		s.settleStats(dctx, StateFailed, err)
		return schema.Value{}, err

	default:
		err := &DispatchError{
			Reason: ReasonRemoteFailure, Key: dctx.Key, CommandID: dctx.CommandID,
			CorrelationID: dctx.CorrelationID, Code: res.code,
		}
		s.settleStats(dctx, StateFailed, err)
		return schema.Value{}, err
	}
}

func (s *Service) settleStats(dctx DispatchContext, state DispatchState, err error) {
	dctx.State = state
	dctx.Duration = time.Since(dctx.IssuedAt)
	s.stats(dctx.Key, dctx.CommandID).settled(state)
	s.hooks.settled(dctx, err)
}

func (s *Service) addPending(p *pendingCommand) {
	s.pendingMu.Lock()
	s.pending[p.correlationID] = p
	s.pendingMu.Unlock()
}

func (s *Service) removePending(correlationID string) {
	s.pendingMu.Lock()
	delete(s.pending, correlationID)
	s.pendingMu.Unlock()
}

// handleCompletion feeds an arriving completion to the Dispatch call waiting
// on its correlation id. Completions with no pending entry are stale: the
// caller already timed out, was cancelled, or this is a duplicate delivery.
// They are logged and dropped, never redelivered.
func (s *Service) handleCompletion(msg *message.Message) error {
	correlationID := msg.Metadata.Get(metaCorrelationID)
	if correlationID == "" {
		s.Logger.Error("Completion without correlation id", nil, loggingpkg.LogFields{
			"message_uuid": msg.UUID,
		})
		return nil
	}

	s.pendingMu.Lock()
	pending, ok := s.pending[correlationID]
	if ok {
		delete(s.pending, correlationID)
	}
	s.pendingMu.Unlock()

	if !ok {
		s.Logger.Info("Discarding stale completion", loggingpkg.LogFields{
			"correlation_id": correlationID,
			"message_uuid":   msg.UUID,
		})
		return nil
	}

	pending.done <- completionResult{
		status:  msg.Metadata.Get(metaStatus),
		code:    msg.Metadata.Get(metaFailureCode),
		payload: msg.Payload,
	}
	return nil
}
