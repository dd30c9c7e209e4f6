package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/metrics"
)

// Conn is a full-duplex client connection as seen by the Hub.
type Conn interface {
	Peer
	// Receive blocks for the next inbound message. Any error ends the
	// connection's lifecycle.
	Receive() (Message, error)
	Close() error
}

// Hub ties a Registry and a Dispatcher together and runs the lifecycle of
// every connection handed to Serve.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub with an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Logger
	}
	registry := NewRegistry()
	return &Hub{
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger),
		logger:     logger,
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Broadcast delivers msg to every connected client.
func (h *Hub) Broadcast(msg Message) Report {
	return h.dispatcher.Broadcast(msg)
}

// Online lists the identities currently connected.
func (h *Hub) Online() []string {
	return h.registry.Identities()
}

// Serve runs the whole lifecycle of conn and returns once it has left the
// chat. It registers the connection, announces the join, relays every inbound
// message, and on the first receive error removes the entry exactly once and
// announces the leave.
func (h *Hub) Serve(conn Conn, identity string) error {
	if identity == "" {
		metrics.ConnectionsTotal.WithLabelValues(metrics.ResultUnauthenticated).Inc()
		h.closeConn(conn, h.logger)
		return ErrUnauthenticated
	}

	if !h.track() {
		metrics.ConnectionsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		h.closeConn(conn, h.logger)
		return ErrRegistryClosed
	}
	defer h.wg.Done()

	id, err := h.registry.Connect(conn, identity)
	if err != nil {
		result := metrics.ResultHandshakeFailed
		if errors.Is(err, ErrRegistryClosed) {
			result = metrics.ResultRejected
		}
		metrics.ConnectionsTotal.WithLabelValues(result).Inc()
		h.logger.Info("Connection not registered", "identity", identity, "error", err)
		h.closeConn(conn, h.logger)
		return err
	}

	log := logging.WithConnection(h.logger, id, identity)
	joinedAt := time.Now()
	metrics.ConnectionsTotal.WithLabelValues(metrics.ResultAccepted).Inc()
	metrics.ConnectionsCurrent.Inc()
	log.Info("Client joined", "total_clients", h.registry.Len())

	h.dispatcher.Broadcast(SystemMessage(identity, StatusConnected))

	reason := h.relay(conn)
	h.logDeparture(log, reason)

	if err := h.registry.Disconnect(id); err != nil {
		log.Error("Registry lost track of connection", "error", err)
	}
	metrics.ConnectionsCurrent.Dec()
	metrics.ConnectionDuration.Observe(time.Since(joinedAt).Seconds())

	h.dispatcher.Broadcast(SystemMessage(identity, StatusLeft))
	h.closeConn(conn, log)

	log.Info("Client left", "total_clients", h.registry.Len())
	return nil
}

// relay forwards inbound messages until Receive fails and returns that error.
func (h *Hub) relay(conn Conn) error {
	for {
		msg, err := conn.Receive()
		if err != nil {
			return err
		}
		h.dispatcher.Broadcast(msg)
	}
}

func (h *Hub) logDeparture(log *slog.Logger, reason error) {
	switch {
	case errors.Is(reason, ErrMalformedMessage):
		log.Warn("Dropping client after malformed message", "error", reason)
	case errors.Is(reason, io.EOF), errors.Is(reason, ErrConnClosed):
		log.Debug("Client connection closed", "error", reason)
	default:
		log.Info("Client disconnected", "error", reason)
	}
}

func (h *Hub) closeConn(conn Conn, log *slog.Logger) {
	if err := conn.Close(); err != nil {
		log.Debug("Error closing connection", "error", err)
	}
}

// track reserves a slot in the wait group unless the hub is shutting down.
func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Shutdown stops accepting connections, closes every live connection and
// waits for their lifecycles to finish. It returns context.DeadlineExceeded
// if that takes longer than timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("Initiating hub shutdown...")

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	entries := h.registry.Close()
	for _, entry := range entries {
		closer, ok := entry.Handle.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logging.WithConnection(h.logger, entry.ID, entry.Identity).Debug("Error closing connection", "error", err)
		}
	}
	h.logger.Info("Closed client connections", "count", len(entries))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timeout reached, some connections may still be running")
		return context.DeadlineExceeded
	}
}
