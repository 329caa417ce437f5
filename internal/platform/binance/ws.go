package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

const (
	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 10 * time.Second

	// readLimit is the maximum size of an incoming frame.
	readLimit = 1 << 16
)

// StreamClient is one WebSocket connection to the exchange trade stream for a
// single symbol. The feed layer owns reconnection; a StreamClient is used for
// exactly one connection's lifetime.
type StreamClient struct {
	endpoint string
	symbol   string
	conn     *websocket.Conn
}

// NewStreamClient creates a client for the given endpoint root (e.g.
// "wss://stream.binance.com:9443/ws") and symbol.
func NewStreamClient(endpoint, symbol string) *StreamClient {
	return &StreamClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		symbol:   strings.ToLower(symbol),
	}
}

// URL is the full stream URL this client dials.
func (c *StreamClient) URL() string {
	return fmt.Sprintf("%s/%s@trade", c.endpoint, c.symbol)
}

// Connect dials the trade stream. The server starts pushing trade events
// immediately; no subscribe frame is needed for a path-addressed stream.
func (c *StreamClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.URL(), nil)
	if err != nil {
		return fmt.Errorf("binance: dial %s: %w", c.URL(), err)
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn
	return nil
}

// ReadTick blocks until the next trade event arrives and returns it. The
// readDeadline bounds the wait so the caller can detect a silent connection.
// Non-trade frames are skipped.
func (c *StreamClient) ReadTick(readDeadline time.Duration) (domain.Tick, error) {
	if c.conn == nil {
		return domain.Tick{}, fmt.Errorf("binance: %w: not connected", domain.ErrWSDisconnect)
	}
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return domain.Tick{}, fmt.Errorf("binance: set read deadline: %w", err)
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return domain.Tick{}, fmt.Errorf("binance: %w: %v", domain.ErrWSDisconnect, err)
		}
		tick, ok, err := ParseTrade(raw)
		if err != nil {
			// Malformed frame; skip it rather than tearing the socket down.
			continue
		}
		if !ok {
			continue
		}
		return tick, nil
	}
}

// Close tears the connection down.
func (c *StreamClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
