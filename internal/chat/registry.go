package chat

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ConnID identifies one registered connection. It is assigned by Connect and
// never reused.
type ConnID = uuid.UUID

// Handle is the write-only capability to deliver a message to one client.
type Handle interface {
	Send(msg Message) error
}

// Peer is a connection that still has to complete its transport handshake.
type Peer interface {
	Handle
	Accept() error
}

// Entry is the registry record of one active connection.
type Entry struct {
	ID       ConnID
	Handle   Handle
	Identity string
	JoinedAt time.Time
}

// Registry is the authoritative set of active connections. All mutation and
// enumeration happens under a single RWMutex; the handshake and message
// delivery never run while it is held.
type Registry struct {
	mu      sync.RWMutex
	entries map[ConnID]*Entry
	closed  bool
}

// NewRegistry returns an empty, open registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[ConnID]*Entry),
	}
}

// Connect completes the peer's handshake and then inserts it. A failed
// handshake leaves the registry untouched. The caller keeps ownership of the
// peer when an error is returned.
func (r *Registry) Connect(peer Peer, identity string) (ConnID, error) {
	if r.isClosed() {
		return uuid.Nil, ErrRegistryClosed
	}

	if err := peer.Accept(); err != nil {
		return uuid.Nil, fmt.Errorf("accept handshake: %w", err)
	}

	entry := &Entry{
		ID:       uuid.New(),
		Handle:   peer,
		Identity: identity,
		JoinedAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return uuid.Nil, ErrRegistryClosed
	}
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

// Disconnect removes the entry registered under id.
func (r *Registry) Disconnect(id ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("disconnect %s: %w", id, ErrUnknownConnection)
	}
	delete(r.entries, id)
	return nil
}

// Snapshot returns a point-in-time copy of the active entries in no
// particular order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.entries, func(_ ConnID, e *Entry) Entry {
		return *e
	})
}

// Len returns the number of active entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Identities lists the distinct identities currently connected, sorted.
func (r *Registry) Identities() []string {
	names := lo.Uniq(lo.Map(r.Snapshot(), func(e Entry, _ int) string {
		return e.Identity
	}))
	slices.Sort(names)
	return names
}

// Close stops further Connects and returns the entries that are still live.
// The entries stay registered until their owners call Disconnect.
func (r *Registry) Close() []Entry {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	return r.Snapshot()
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
