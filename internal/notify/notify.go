// Package notify carries pipeline events to outward consumers. Publishing
// never blocks pipeline work: when every subscriber buffer is full the event
// is dropped and counted.
package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"launchlab/internal/observability"
)

// Event kinds.
const (
	KindLaunchDetected = "launch_detected"
	KindTradeExecuted  = "launch_trade_executed"
)

// Event is one pipeline notification.
type Event struct {
	Kind       string
	LaunchID   string
	TokenID    string
	Symbol     string
	PriceUSD   float64
	MarketCap  float64
	AmountUSD  float64 // populated for trade events
	OccurredAt int64   // Unix ms
}

// Publisher is the side of the bus components publish to.
type Publisher interface {
	Publish(event Event)
}

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu      sync.Mutex
	subs    []chan Event
	dropped uint64
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

var _ Publisher = (*Bus)(nil)

// Subscribe registers a consumer and returns its event channel.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped++
			observability.DefaultMetrics.NotificationsDropped.Inc()
		}
	}
}

// Dropped returns how many deliveries were skipped due to full buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// LogSink consumes bus events and writes them to the structured log. It is
// the default outward consumer when no alerting layer is attached.
type LogSink struct {
	log  zerolog.Logger
	done chan struct{}
}

// NewLogSink starts a sink draining the given subscription.
func NewLogSink(events <-chan Event, log zerolog.Logger) *LogSink {
	s := &LogSink{
		log:  log.With().Str("component", "notify").Logger(),
		done: make(chan struct{}),
	}
	go s.drain(events)
	return s
}

// Wait blocks until the subscription channel is closed and drained.
func (s *LogSink) Wait() {
	<-s.done
}

func (s *LogSink) drain(events <-chan Event) {
	defer close(s.done)

	for e := range events {
		entry := s.log.Info().
			Str("event", e.Kind).
			Str("launch_id", e.LaunchID).
			Str("symbol", e.Symbol).
			Float64("price_usd", e.PriceUSD).
			Float64("market_cap", e.MarketCap)
		if e.Kind == KindTradeExecuted {
			entry = entry.Float64("amount_usd", e.AmountUSD)
		}
		entry.Msg("pipeline event")
	}
}
