package logging

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

type captureLogger struct {
	mu     sync.Mutex
	events []capturedEvent
	fields watermill.LogFields
}

type capturedEvent struct {
	level  string
	msg    string
	err    error
	fields watermill.LogFields
}

func (c *captureLogger) record(level, msg string, err error, fields watermill.LogFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := make(watermill.LogFields, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	c.events = append(c.events, capturedEvent{level: level, msg: msg, err: err, fields: merged})
}

func (c *captureLogger) Error(msg string, err error, fields watermill.LogFields) {
	c.record("error", msg, err, fields)
}
func (c *captureLogger) Info(msg string, fields watermill.LogFields)  { c.record("info", msg, nil, fields) }
func (c *captureLogger) Debug(msg string, fields watermill.LogFields) { c.record("debug", msg, nil, fields) }
func (c *captureLogger) Trace(msg string, fields watermill.LogFields) { c.record("trace", msg, nil, fields) }
func (c *captureLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &captureLogger{events: c.events, fields: fields}
}

func TestWatermillServiceLoggerForwards(t *testing.T) {
	capture := &captureLogger{}
	logger := NewWatermillServiceLogger(capture)

	logger.Info("trait registered", LogFields{"trait": "power_source"})
	logger.Error("decode failed", errors.New("boom"), LogFields{"tag": 4})

	if len(capture.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(capture.events))
	}
	if capture.events[0].level != "info" || capture.events[0].fields["trait"] != "power_source" {
		t.Fatalf("unexpected info event: %#v", capture.events[0])
	}
	if capture.events[1].err == nil {
		t.Fatal("expected error to be forwarded")
	}
}

func TestAdapterRoundTrip(t *testing.T) {
	capture := &captureLogger{}
	svc := NewWatermillServiceLogger(capture)
	adapter := NewWatermillAdapter(svc)

	adapter.Debug("skipping unknown tag", watermill.LogFields{"tag": 99})

	if len(capture.events) != 1 || capture.events[0].level != "debug" {
		t.Fatalf("unexpected events: %#v", capture.events)
	}
}

func TestNewSlogServiceLoggerPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil slog logger")
		}
	}()
	NewSlogServiceLogger(nil)
}

func TestNewSlogServiceLoggerAcceptsDefault(t *testing.T) {
	logger := NewSlogServiceLogger(slog.Default())
	if logger == nil {
		t.Fatal("expected logger")
	}
	// With must return a usable logger.
	logger.With(LogFields{"component": "codec"}).Debug("noop", nil)
}
