package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	loggingpkg "github.com/MShaffar19/traitflow/internal/runtime/logging"
	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

// DispatchContext describes one dispatch to lifecycle hooks.
type DispatchContext struct {
	Key           schema.Key
	CommandID     uint32
	CorrelationID string
	IssuedAt      time.Time
	// Duration and State are only set when the dispatch has settled.
	Duration time.Duration
	State    DispatchState
}

// DispatchHooks are optional callbacks around the dispatch lifecycle. Nil
// hooks are simply not called.
type DispatchHooks struct {
	// OnIssued runs after the command has a correlation id, before publish.
	OnIssued func(ctx DispatchContext)

	// OnSettled runs once per dispatch with the terminal state. err is nil
	// for completed dispatches.
	OnSettled func(ctx DispatchContext, err error)
}

func (h DispatchHooks) issued(ctx DispatchContext) {
	if h.OnIssued != nil {
		h.OnIssued(ctx)
	}
}

func (h DispatchHooks) settled(ctx DispatchContext, err error) {
	if h.OnSettled != nil {
		h.OnSettled(ctx, err)
	}
}

// Merge combines two hook sets; other's callbacks run after h's.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	merged := DispatchHooks{}

	switch {
	case h.OnIssued == nil:
		merged.OnIssued = other.OnIssued
	case other.OnIssued == nil:
		merged.OnIssued = h.OnIssued
	default:
		a, b := h.OnIssued, other.OnIssued
		merged.OnIssued = func(ctx DispatchContext) {
			a(ctx)
			b(ctx)
		}
	}

	switch {
	case h.OnSettled == nil:
		merged.OnSettled = other.OnSettled
	case other.OnSettled == nil:
		merged.OnSettled = h.OnSettled
	default:
		a, b := h.OnSettled, other.OnSettled
		merged.OnSettled = func(ctx DispatchContext, err error) {
			a(ctx, err)
			b(ctx, err)
		}
	}

	return merged
}

// LoggingHooks returns hooks that log every dispatch issue and settlement.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	return DispatchHooks{
		OnIssued: func(ctx DispatchContext) {
			logger.Info("Dispatch issued", loggingpkg.LogFields{
				"trait":          ctx.Key.String(),
				"command_id":     ctx.CommandID,
				"correlation_id": ctx.CorrelationID,
			})
		},
		OnSettled: func(ctx DispatchContext, err error) {
			fields := loggingpkg.LogFields{
				"trait":          ctx.Key.String(),
				"command_id":     ctx.CommandID,
				"correlation_id": ctx.CorrelationID,
				"state":          ctx.State.String(),
				"duration_ms":    ctx.Duration.Milliseconds(),
			}
			if err != nil {
				logger.Error("Dispatch settled", err, fields)
				return
			}
			logger.Info("Dispatch settled", fields)
		},
	}
}

// MetricsHooks returns hooks that count dispatch outcomes in Prometheus.
// The collector is registered on the supplied registerer; pass
// prometheus.DefaultRegisterer for the process-global registry.
func MetricsHooks(reg prometheus.Registerer) DispatchHooks {
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traitflow",
		Name:      "dispatch_settled_total",
		Help:      "Dispatch outcomes by trait and terminal state.",
	}, []string{"trait", "state"})
	reg.MustRegister(settled)

	return DispatchHooks{
		OnSettled: func(ctx DispatchContext, _ error) {
			settled.WithLabelValues(ctx.Key.String(), ctx.State.String()).Inc()
		},
	}
}
