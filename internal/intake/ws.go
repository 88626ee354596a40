package intake

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"strategy-draft-gate/internal/domain"
)

// WSConfig configures draft stream connection behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default draft stream configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource receives draft documents over a WebSocket stream, one document
// per message. Documents accumulate in an internal buffer; Fetch drains
// whatever has arrived since the previous call.
type WSSource struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// buffered documents awaiting the next Fetch
	drafts    []domain.ParsedDraft
	malformed []domain.MalformedDraft
	bufMu     sync.Mutex

	// seq numbers received messages for malformed-source labels
	seq atomic.Uint64

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSSource connects to the endpoint and starts receiving drafts.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Fetch drains the receive buffer. It never blocks waiting for new
// documents; an empty result means nothing arrived since the last drain.
func (s *WSSource) Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.closed.Load() {
		return nil, nil, fmt.Errorf("draft stream closed")
	}

	s.bufMu.Lock()
	drafts := s.drafts
	malformed := s.malformed
	s.drafts = nil
	s.malformed = nil
	s.bufMu.Unlock()

	return drafts, malformed, nil
}

// Sequence returns the number of messages received so far, for intake
// progress checkpoints.
func (s *WSSource) Sequence() uint64 {
	return s.seq.Load()
}

// Close shuts down the stream and stops background goroutines.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// readLoop reads draft documents and buffers them until the next Fetch.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to re-establish the connection after a read failure.
func (s *WSSource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Printf("draft stream reconnect failed: %v", err)
		return
	}

	s.logger.Printf("draft stream reconnected to %s", s.endpoint)
}

// handleMessage parses one received document into the buffer. Documents
// that fail validation are buffered as malformed, labeled by arrival order.
func (s *WSSource) handleMessage(message []byte) {
	seq := s.seq.Add(1)
	label := fmt.Sprintf("ws:%d", seq)

	parsed, err := ParseDraft(message)
	if err != nil {
		s.bufMu.Lock()
		s.malformed = append(s.malformed, domain.MalformedDraft{Source: label, Reason: err.Error()})
		s.bufMu.Unlock()
		return
	}

	s.bufMu.Lock()
	s.drafts = append(s.drafts, parsed)
	s.bufMu.Unlock()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
