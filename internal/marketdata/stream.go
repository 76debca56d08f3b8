package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PairTick is one live price update from the stream.
type PairTick struct {
	ExternalID string  `json:"pairAddress"`
	Symbol     string  `json:"symbol"`
	PriceUSD   float64 `json:"priceUsd"`
	MarketCap  float64 `json:"marketCap"`
	Volume24h  float64 `json:"volume24h"`
	Change24h  float64 `json:"change24h"`
}

// StreamConfig configures the live pair stream.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// PairStream consumes a websocket feed of live pair ticks. Updates arrive
// between poll cycles, keeping token state fresher than the HTTP cadence
// allows. Reconnects with exponential backoff until the context is done.
type PairStream struct {
	endpoint string
	config   StreamConfig
	log      zerolog.Logger

	ticks chan PairTick

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPairStream creates a pair stream for the given websocket endpoint.
func NewPairStream(endpoint string, config StreamConfig, log zerolog.Logger) *PairStream {
	return &PairStream{
		endpoint: endpoint,
		config:   config,
		log:      log.With().Str("component", "pair_stream").Logger(),
		ticks:    make(chan PairTick, 256),
	}
}

// Ticks returns the channel of live updates. Slow consumers drop ticks
// rather than stalling the read loop.
func (s *PairStream) Ticks() <-chan PairTick {
	return s.ticks
}

// Start launches the read loop. Returns immediately.
func (s *PairStream) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
}

// Stop shuts down the read loop and waits for it to exit.
func (s *PairStream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *PairStream) run(ctx context.Context) {
	defer close(s.done)

	delay := s.config.ReconnectDelay
	for {
		if err := s.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

func (s *PairStream) readLoop(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.log.Info().Str("endpoint", s.endpoint).Msg("stream connected")

	for {
		if s.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var tick PairTick
		if err := json.Unmarshal(data, &tick); err != nil {
			s.log.Debug().Err(err).Msg("skipping malformed tick")
			continue
		}
		if tick.ExternalID == "" {
			continue
		}

		select {
		case s.ticks <- tick:
		default:
			// Consumer behind; the next poll cycle will catch up
		}
	}
}
