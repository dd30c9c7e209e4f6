package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handshake completes the WebSocket upgrade for a pending client.
type Handshake func() (*websocket.Conn, error)

// Client adapts one WebSocket connection to chat.Conn. Outbound messages go
// through a bounded queue drained by a dedicated writer goroutine; inbound
// messages are read by whoever calls Receive.
type Client struct {
	handshake      Handshake
	conn           *websocket.Conn
	send           chan []byte
	addr           string
	maxMessageSize int64
	rateLimiter    *rate.Limiter
	rateLimit      RateLimitConfig
	logger         *slog.Logger

	mu       sync.Mutex
	closed   bool
	upgraded bool
}

// NewClient creates a pending client. The handshake runs when the registry
// calls Accept.
func NewClient(handshake Handshake, addr string, cfg *Config, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		handshake:      handshake,
		send:           make(chan []byte, cfg.SendQueueSize),
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
		logger:         logger.With("remote_addr", addr),
	}
}

// Accept performs the upgrade and starts the writer.
func (c *Client) Accept() error {
	if c.handshake == nil {
		return errors.New("no handshake configured")
	}
	conn, err := c.handshake()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.upgraded = true
	c.mu.Unlock()

	conn.SetReadLimit(c.maxMessageSize)
	c.setupReadConnection()
	go c.writePump()
	return nil
}

// Upgraded reports whether the handshake succeeded.
func (c *Client) Upgraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upgraded
}

// Send queues msg for the writer. A full queue closes the connection so its
// read side fails and the client leaves through the normal lifecycle.
func (c *Client) Send(msg chat.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return chat.ErrConnClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.closeLocked()
		return chat.ErrSendQueueFull
	}
}

// Receive reads the next JSON object from the peer. Messages over the rate
// limit are discarded. Read errors, oversize frames and malformed JSON end the
// connection.
func (c *Client) Receive() (chat.Message, error) {
	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return nil, err
		}

		if !c.checkRateLimit() {
			continue
		}

		msg, err := chat.DecodeMessage(rawMessage)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("Received message", "bytes", len(rawMessage))
		return msg, nil
	}
}

// Close stops the writer, which sends a close frame and closes the socket.
// It is safe to call more than once and before Accept.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError logs the read error at a level matching how expected it is.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("Message exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.logger.Debug("Client disconnected", "error", err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), isExpectedCloseError(err):
		c.logger.Debug("Client connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Info("Unexpected WebSocket close", "error", err)
	default:
		c.logger.Info("WebSocket read error", "error", err)
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		metrics.MessagesDroppedTotal.Inc()
		c.logger.Warn("Rate limit exceeded; discarding message",
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
		_ = c.Close()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("Error closing connection in writePump", "error", err)
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("Error writing close message", "error", err)
	}
	return false
}

// writeTextMessage writes one JSON object as one text frame.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Info("Error writing message", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Info("Error writing ping message", "error", err)
		return false
	}
	return true
}
