package runtime

import (
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

// HandlerStats counts deliveries processed by one router handler.
type HandlerStats struct {
	mu sync.Mutex

	MessagesProcessed uint64    `json:"messages_processed"`
	MessagesFailed    uint64    `json:"messages_failed"`
	LastProcessedAt   time.Time `json:"last_processed_at"`
}

// HandlerInfo describes one handler attached to the router.
type HandlerInfo struct {
	Name         string        `json:"name"`
	ConsumeTopic string        `json:"consume_topic"`
	Stats        *HandlerStats `json:"stats"`
}

func newHandlerStats() *HandlerStats {
	return &HandlerStats{}
}

func (h *HandlerStats) record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.MessagesProcessed++
	if err != nil {
		h.MessagesFailed++
	}
	h.LastProcessedAt = time.Now().UTC()
}

// Snapshot returns a copy safe to read without holding the handler's lock.
func (h *HandlerStats) Snapshot() HandlerStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HandlerStats{
		MessagesProcessed: h.MessagesProcessed,
		MessagesFailed:    h.MessagesFailed,
		LastProcessedAt:   h.LastProcessedAt,
	}
}

func wrapHandlerWithStats(handler message.NoPublishHandlerFunc, stats *HandlerStats) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		err := handler(msg)
		stats.record(err)
		return err
	}
}

// Handlers returns a snapshot of the handlers attached to the router.
func (s *Service) Handlers() []HandlerInfo {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()

	out := make([]HandlerInfo, 0, len(s.handlers))
	for _, info := range s.handlers {
		snapshot := info.Stats.Snapshot()
		out = append(out, HandlerInfo{
			Name:         info.Name,
			ConsumeTopic: info.ConsumeTopic,
			Stats:        &snapshot,
		})
	}
	return out
}

// DispatchStats counts dispatch outcomes for one command of one trait.
type DispatchStats struct {
	mu sync.Mutex

	Issued        uint64    `json:"issued"`
	Completed     uint64    `json:"completed"`
	Failed        uint64    `json:"failed"`
	TimedOut      uint64    `json:"timed_out"`
	Cancelled     uint64    `json:"cancelled"`
	LastSettledAt time.Time `json:"last_settled_at"`
}

type statKey struct {
	key       schema.Key
	commandID uint32
}

func (d *DispatchStats) issued() {
	d.mu.Lock()
	d.Issued++
	d.mu.Unlock()
}

func (d *DispatchStats) settled(state DispatchState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch state {
	case StateCompleted:
		d.Completed++
	case StateTimedOut:
		d.TimedOut++
	case StateCancelled:
		d.Cancelled++
	default:
		d.Failed++
	}
	d.LastSettledAt = time.Now().UTC()
}

// Snapshot returns a copy safe to read without holding the lock.
func (d *DispatchStats) Snapshot() DispatchStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DispatchStats{
		Issued:        d.Issued,
		Completed:     d.Completed,
		Failed:        d.Failed,
		TimedOut:      d.TimedOut,
		Cancelled:     d.Cancelled,
		LastSettledAt: d.LastSettledAt,
	}
}

func (s *Service) stats(key schema.Key, commandID uint32) *DispatchStats {
	sk := statKey{key: key, commandID: commandID}

	s.dispatchStatsMu.Lock()
	defer s.dispatchStatsMu.Unlock()

	stats, ok := s.dispatchStats[sk]
	if !ok {
		stats = &DispatchStats{}
		s.dispatchStats[sk] = stats
	}
	return stats
}

// DispatchStatsFor returns a snapshot of the dispatch counters for one
// command, or a zero value when the command was never dispatched.
func (s *Service) DispatchStatsFor(key schema.Key, commandID uint32) DispatchStats {
	s.dispatchStatsMu.Lock()
	stats, ok := s.dispatchStats[statKey{key: key, commandID: commandID}]
	s.dispatchStatsMu.Unlock()

	if !ok {
		return DispatchStats{}
	}
	return stats.Snapshot()
}
