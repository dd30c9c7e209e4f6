package chat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/metrics"
)

// Report summarises one Broadcast call.
type Report struct {
	Recipients int
	Delivered  int
	Failed     int
}

// Dispatcher fans a message out to every entry of a Registry.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher reading from registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Logger
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Broadcast delivers msg to every entry present when the call starts. Each
// recipient is attempted independently; failures are logged and counted, never
// returned.
func (d *Dispatcher) Broadcast(msg Message) Report {
	entries := d.registry.Snapshot()

	metrics.BroadcastsTotal.Inc()
	metrics.BroadcastFanout.Observe(float64(len(entries)))

	report := Report{Recipients: len(entries)}
	for _, entry := range entries {
		if err := d.deliver(entry, msg); err != nil {
			report.Failed++
			d.recordFailure(entry, err)
			continue
		}
		report.Delivered++
	}
	return report
}

func (d *Dispatcher) deliver(entry Entry, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return entry.Handle.Send(msg)
}

func (d *Dispatcher) recordFailure(entry Entry, err error) {
	log := logging.WithError(logging.WithConnection(d.logger, entry.ID, entry.Identity), err)

	switch {
	case errors.Is(err, ErrConnClosed):
		metrics.DeliveryFailuresTotal.WithLabelValues("closed").Inc()
		log.Debug("Skipping delivery to closed connection")
	case errors.Is(err, ErrSendQueueFull):
		metrics.DeliveryFailuresTotal.WithLabelValues("queue_full").Inc()
		log.Warn("Dropped slow client with full send queue")
	default:
		metrics.DeliveryFailuresTotal.WithLabelValues("error").Inc()
		log.Warn("Delivery to client failed")
	}
}
